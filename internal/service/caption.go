package service

import (
	"strings"

	"ghostpic/internal/model"
)

var inappropriateKeywords = []string{
	// adult
	"sex", "sexual", "nude", "nudity", "porn", "adult", "xxx", "erotic",

	// hate and harassment
	"hate", "racist", "discrimination", "abuse", "harassment",
	"genocide", "ethnic cleansing", "insurrection", "armed attack",

	// political targeting
	"overthrow government", "destroy nation", "attack party",
	"eliminate party", "down with", "burn flag", "bomb parliament",
	"kill president", "kill prime minister", "kill leader",
	"threaten government", "target embassy", "political assassination",
}

// First matching category wins; none matching falls back to #infrastructure.
var categoryHashtags = []struct {
	tag      string
	keywords []string
}{
	{"#infrastructure", []string{"road", "street", "pothole", "traffic"}},
	{"#watersupply", []string{"water", "drainage", "flood", "pipe"}},
	{"#utilities", []string{"light", "electricity", "power"}},
	{"#sanitation", []string{"waste", "garbage", "trash", "clean"}},
}

// CaptionService turns an informal complaint into a formal civic caption.
type CaptionService struct{}

func NewCaptionService() *CaptionService {
	return &CaptionService{}
}

// Suggest rejects content containing a blocked keyword (substring match,
// case-insensitive) and otherwise returns a templated caption of at most
// 100 characters plus category hashtags.
func (s *CaptionService) Suggest(content string) (*model.CaptionSuggestion, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, model.Invalid(model.ErrContentRequired)
	}

	lower := strings.ToLower(content)
	for _, kw := range inappropriateKeywords {
		if strings.Contains(lower, kw) {
			return nil, model.Invalid(model.ErrInappropriateContent)
		}
	}

	caption := "Civic issue reported: " + content + ". Immediate attention required."
	if r := []rune(caption); len(r) > model.MaxSuggestedCaptionLength {
		caption = string(r[:model.MaxSuggestedCaptionLength])
	}

	return &model.CaptionSuggestion{
		Caption:  caption,
		Hashtags: []string{"#civicissue", "#community", categoryFor(lower)},
	}, nil
}

func categoryFor(lower string) string {
	for _, c := range categoryHashtags {
		for _, kw := range c.keywords {
			if strings.Contains(lower, kw) {
				return c.tag
			}
		}
	}
	return "#infrastructure"
}
