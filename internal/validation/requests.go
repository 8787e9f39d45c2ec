package validation

import (
	"fmt"
	"strings"

	"github.com/hyperengineering/tinyleap/internal/types"
)

var (
	roles   = []string{string(types.RoleAI), string(types.RoleUser)}
	sources = []string{string(types.SourceUser), string(types.SourceAI)}
	colors  = []string{
		string(types.ColorYellow), string(types.ColorGreen), string(types.ColorBlue),
		string(types.ColorPink), string(types.ColorPurple), string(types.ColorGray),
	}
	behaviorTypes = []string{string(types.BehaviorGolden), string(types.BehaviorChallenge)}
)

func position(c *Collector, field string, p types.Position) {
	c.Percent(field+".x", p.X)
	c.Percent(field+".y", p.Y)
}

func score(c *Collector, field string, s *types.RationalScore) {
	if s == nil {
		return
	}
	c.Percent(field+".impact", s.Impact)
	c.Percent(field+".ability", s.Ability)
}

func history(c *Collector, field string, entries []types.ChatEntry) {
	if !c.Count(field, len(entries), MaxHistoryEntries, "entries") {
		return
	}
	for i, e := range entries {
		prefix := fmt.Sprintf("%s[%d]", field, i)
		c.OneOf(prefix+".role", string(e.Role), roles)
		c.Text(prefix+".content", e.Content, MaxMessageLength)
	}
}

// ValidateBehavior checks a client-supplied behavior record.
func ValidateBehavior(c *Collector, field string, b *types.Behavior) {
	if strings.TrimSpace(b.ID) == "" {
		c.fail(field+".id", "is required")
	}
	c.RequiredText(field+".text", b.Text, MaxBehaviorTextLength)
	position(c, field+".intuitivePosition", b.IntuitivePosition)
	score(c, field+".rationalScore", b.RationalScore)
	if b.Color != "" {
		c.OneOf(field+".color", string(b.Color), colors)
	}
	if b.Source != "" {
		c.OneOf(field+".source", string(b.Source), sources)
	}
	if ev := b.AiEvaluation; ev != nil {
		c.Text(field+".aiEvaluation.suggestion", ev.Suggestion, MaxMessageLength)
		score(c, field+".aiEvaluation.rationalScore", ev.RationalScore)
		score(c, field+".aiEvaluation.finalScore", ev.FinalScore)
		history(c, field+".aiEvaluation.chatHistory", ev.ChatHistory)
	}
}

func behaviors(c *Collector, field string, list []types.Behavior) {
	if !c.Count(field, len(list), MaxBehaviors, "behaviors") {
		return
	}
	seen := make(map[string]bool, len(list))
	for i := range list {
		prefix := fmt.Sprintf("%s[%d]", field, i)
		ValidateBehavior(c, prefix, &list[i])
		if id := list[i].ID; id != "" {
			if seen[id] {
				c.fail(prefix+".id", "duplicates an earlier behavior id")
			}
			seen[id] = true
		}
	}
}

// ValidateWorkshopContent validates a whole-document save.
func ValidateWorkshopContent(req *types.WorkshopContent) []ValidationError {
	var c Collector
	c.Text("vision", req.Vision, MaxVisionLength)
	behaviors(&c, "behaviors", req.Behaviors)
	if sop := req.SOPData; sop != nil {
		for i, s := range sop.Sections {
			c.OneOf(fmt.Sprintf("sopData.sections[%d].behaviorType", i), string(s.BehaviorType), behaviorTypes)
		}
	}
	return c.Errors()
}

// ValidateCreateWorkshop validates a create request. The vision may be empty.
func ValidateCreateWorkshop(req *types.CreateWorkshopRequest) []ValidationError {
	var c Collector
	c.Text("vision", req.Vision, MaxVisionLength)
	return c.Errors()
}

// ValidateGenerate validates a Designer request.
func ValidateGenerate(req *types.GenerateRequest) []ValidationError {
	var c Collector
	c.RequiredText("vision", req.Vision, MaxVisionLength)
	c.Count("excludeTexts", len(req.ExcludeTexts), MaxExcludeTexts, "entries")
	return c.Errors()
}

// ValidateValidate validates a Validator request.
func ValidateValidate(req *types.ValidateRequest) []ValidationError {
	var c Collector
	c.RequiredText("behavior", req.Behavior, MaxBehaviorTextLength)
	c.Text("vision", req.Vision, MaxVisionLength)
	return c.Errors()
}

// ValidateCoachNext validates a next-question request.
func ValidateCoachNext(req *types.CoachNextRequest) []ValidationError {
	var c Collector
	c.RequiredText("behavior", req.Behavior, MaxBehaviorTextLength)
	c.Text("vision", req.Vision, MaxVisionLength)
	c.Text("validatorCritique", req.ValidatorCritique, MaxMessageLength)
	history(&c, "history", req.History)
	return c.Errors()
}

// ValidateCoachFinal validates a final-evaluation request.
func ValidateCoachFinal(req *types.CoachFinalRequest) []ValidationError {
	var c Collector
	c.RequiredText("behavior", req.Behavior, MaxBehaviorTextLength)
	c.Text("vision", req.Vision, MaxVisionLength)
	history(&c, "history", req.History)
	return c.Errors()
}

// ValidateSOP validates an SOP request.
func ValidateSOP(req *types.SOPRequest) []ValidationError {
	var c Collector
	c.Text("vision", req.Vision, MaxVisionLength)
	behaviors(&c, "behaviors", req.Behaviors)
	return c.Errors()
}

// ValidatePassword validates a verify or set request.
func ValidatePassword(req *types.PasswordRequest) []ValidationError {
	var c Collector
	switch {
	case strings.TrimSpace(req.Password) == "":
		c.fail("password", "is required")
	case len(req.Password) > MaxPasswordBytes:
		c.fail("password", "exceeds maximum length of %d bytes", MaxPasswordBytes)
	case strings.ContainsRune(req.Password, 0):
		c.fail("password", "must not contain null bytes")
	}
	return c.Errors()
}

// ValidateText validates an add-behavior or edit-text request.
func ValidateText(req *types.TextRequest) []ValidationError {
	var c Collector
	c.RequiredText("text", req.Text, MaxBehaviorTextLength)
	return c.Errors()
}

// ValidateVision validates a set-vision request.
func ValidateVision(req *types.VisionRequest) []ValidationError {
	var c Collector
	c.Text("vision", req.Vision, MaxVisionLength)
	return c.Errors()
}

// ValidateReply validates a coaching reply.
func ValidateReply(req *types.ReplyRequest) []ValidationError {
	var c Collector
	c.RequiredText("text", req.Text, MaxMessageLength)
	return c.Errors()
}
