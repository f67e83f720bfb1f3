package ml

import "sort"

// CodeTable maps a category label to the integer code the classifier was
// trained on.
type CodeTable struct {
	field string
	codes map[string]int
}

func newCodeTable(field string, codes map[string]int) CodeTable {
	return CodeTable{field: field, codes: codes}
}

var (
	GenderCodes = newCodeTable("Gender", map[string]int{
		"Female": 0,
		"Male":   1,
	})
	YesNoCodes = newCodeTable("yes/no", map[string]int{
		"No":  0,
		"Yes": 1,
	})
	// Snack frequency codes are not ordered by frequency. They match the
	// labels the classifier saw during training.
	SnackCodes = newCodeTable("CAEC", map[string]int{
		"No":         3,
		"Sometimes":  2,
		"Frequently": 1,
		"Always":     0,
	})
	AlcoholCodes = newCodeTable("CALC", map[string]int{
		"No":         2,
		"Sometimes":  0,
		"Frequently": 1,
	})
	TransportCodes = newCodeTable("MTRANS", map[string]int{
		"Automobile":            0,
		"Bike":                  1,
		"Motorbike":             2,
		"Public_Transportation": 3,
		"Walking":               4,
	})
)

// Encode returns the code for label. field names the record column for the
// error message.
func (t CodeTable) Encode(field, label string) (int, error) {
	code, ok := t.codes[label]
	if !ok {
		return 0, &UnknownCategoryError{Field: field, Value: label}
	}
	return code, nil
}

// Decode is the inverse of Encode.
func (t CodeTable) Decode(code int) (string, bool) {
	for label, c := range t.codes {
		if c == code {
			return label, true
		}
	}
	return "", false
}

// Contains reports whether label is a key of the table.
func (t CodeTable) Contains(label string) bool {
	_, ok := t.codes[label]
	return ok
}

// Labels returns the table keys ordered by code.
func (t CodeTable) Labels() []string {
	labels := make([]string, 0, len(t.codes))
	for label := range t.codes {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool {
		return t.codes[labels[i]] < t.codes[labels[j]]
	})
	return labels
}

func (t CodeTable) Name() string {
	return t.field
}
