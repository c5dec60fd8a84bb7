package router

import "strings"

var (
	moodKeywords         = []string{"настроение", "эмоции"}
	subscriptionKeywords = []string{"подписка"}
	musicKeywords        = []string{"музыка"}
)

// Metadata carries the intent-specific fields of a Result. Only the fields
// relevant to the category are set.
type Metadata struct {
	OilName         string   `json:"oil_name,omitempty"`
	Mood            string   `json:"mood,omitempty"`
	Keywords        []string `json:"keywords,omitempty"`
	CallbackPayload string   `json:"callback_payload,omitempty"`
	CallbackID      string   `json:"callback_id,omitempty"`
}

// IsEmpty reports whether no field is set.
func (m Metadata) IsEmpty() bool {
	return m.OilName == "" &&
		m.Mood == "" &&
		len(m.Keywords) == 0 &&
		m.CallbackPayload == "" &&
		m.CallbackID == ""
}

// ExtractMetadata pulls the fields the dispatch layer needs for category.
//
// The mood bucket that matched is not reported: mood prompts are built from
// the user's own words.
func (t *Taxonomy) ExtractMetadata(rawText string, _ string, category Category) Metadata {
	switch category {
	case CategoryOilSearch:
		return Metadata{OilName: t.extractOilName(rawText)}
	case CategoryMoodRequest:
		return Metadata{Mood: rawText, Keywords: clone(moodKeywords)}
	case CategorySubscriptionInquiry:
		return Metadata{Keywords: clone(subscriptionKeywords)}
	case CategoryMusicRequest:
		return Metadata{Keywords: clone(musicKeywords)}
	default:
		return Metadata{}
	}
}

// extractOilName scans the lowercased raw text, not the normalized one, so a
// name split by doubled spaces falls back to the raw text.
func (t *Taxonomy) extractOilName(rawText string) string {
	if oil, ok := t.FirstOil(strings.ToLower(rawText)); ok {
		return oil
	}

	return rawText
}

func clone(values []string) []string {
	return append([]string(nil), values...)
}
