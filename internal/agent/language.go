package agent

import "github.com/hyperengineering/tinyleap/internal/types"

// phrases holds the fixed natural-language strings for one output language.
type phrases struct {
	name string

	validatorFallback string
	questionFallback  string
	summaryFallback   string
	aiSourceWelcome   string

	validateRequest string // behavior
	coachIntro      string // behavior, vision
	finalRequest    string
	designerRequest string // vision
	sopRequest      string
	goldenLabel     string
	challengeLabel  string
}

var phrasebook = map[types.Language]phrases{
	types.LanguageZH: {
		name:              "中文",
		validatorFallback: "AI 暂时无法校验，假定通过。",
		questionFallback:  "如果我们把这个行为变得更简单一点，你觉得会是什么样？",
		summaryFallback:   "评估完成。根据对话，这是一个值得尝试的行为。",
		aiSourceWelcome:   "我是你的行为设计教练。这个行为是由 AI 灵感爆发生成的，已经过初步筛选。让我们开始深度评测，看看它是否真的适合你。",
		validateRequest:   "请校验行为：'%s'",
		coachIntro:        "我想通过 \"%s\" 来实现 \"%s\"，帮我分析一下。",
		finalRequest:      "请给出最终评估报告。",
		designerRequest:   "我的核心愿望是：'%s'。请为我生成 5-8 个具体的微行为建议，确保行为符合 Tiny Habit 标准，并覆盖上述三个维度。",
		sopRequest:        "请严格按照上述 JSON 格式，为以下行为建立 SOP：",
		goldenLabel:       "黄金行为",
		challengeLabel:    "核心挑战",
	},
	types.LanguageEN: {
		name:              "English",
		validatorFallback: "AI validation temporarily unavailable, assuming it passed.",
		questionFallback:  "If we made this behavior a little simpler, what would it look like?",
		summaryFallback:   "Evaluation complete. Based on our conversation, this behavior is worth trying.",
		aiSourceWelcome:   "I'm your behavior design coach. This behavior was generated by AI and has already passed an initial screen. Let's evaluate it in depth and see whether it really fits you.",
		validateRequest:   "Please validate behavior: '%s'",
		coachIntro:        "I want to do \"%s\" to achieve \"%s\", please help me analyze it.",
		finalRequest:      "Please provide the final evaluation report.",
		designerRequest:   "My core aspiration is: '%s'. Please generate 5-8 specific micro-behavior suggestions for me, ensuring they meet Tiny Habit standards and cover the three dimensions mentioned above.",
		sopRequest:        "Strictly following the JSON format above, build an SOP for these behaviors:",
		goldenLabel:       "Golden behavior",
		challengeLabel:    "Core challenge",
	},
}

func phrasesFor(lang types.Language) phrases {
	if p, ok := phrasebook[lang]; ok {
		return p
	}
	return phrasebook[types.LanguageZH]
}

// WelcomeMessage is the coach's opening line for AI-generated behaviors.
func WelcomeMessage(lang types.Language) string {
	return phrasesFor(lang).aiSourceWelcome
}
