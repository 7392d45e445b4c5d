package progress

const (
	StatusImplemented    = "Implemented as Planned"
	StatusPartial        = "Partially Implemented"
	StatusNotImplemented = "Not Implemented"
	StatusAbsent         = "Student Absent"
)

var (
	statuses = []string{StatusImplemented, StatusPartial, StatusNotImplemented, StatusAbsent}

	// suggested values, the response stays free-form
	responses = []string{"Positive", "Neutral", "Negative", "Resistant"}

	ratingLabels = map[int]string{
		1: "No Progress",
		2: "Minimal Progress",
		3: "Some Progress",
		4: "Good Progress",
		5: "Significant Progress",
	}
)

type (
	RatingOption struct {
		Value int    `json:"value"`
		Label string `json:"label"`
	}

	Options struct {
		Statuses  []string       `json:"statuses"`
		Responses []string       `json:"responses"`
		Ratings   []RatingOption `json:"ratings"`
	}
)

// GetOptions returns the allowed statuses, suggested responses and rating labels.
func GetOptions() Options {
	opts := Options{
		Statuses:  append([]string(nil), statuses...),
		Responses: append([]string(nil), responses...),
		Ratings:   make([]RatingOption, 0, len(ratingLabels)),
	}
	for v := 1; v <= len(ratingLabels); v++ {
		opts.Ratings = append(opts.Ratings, RatingOption{Value: v, Label: ratingLabels[v]})
	}
	return opts
}

func IsValidStatus(s string) bool {
	for _, st := range statuses {
		if s == st {
			return true
		}
	}
	return false
}

// RatingLabel returns the label of rating r, or "" if r is out of range.
func RatingLabel(r int) string {
	return ratingLabels[r]
}
