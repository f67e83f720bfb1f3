package ml

import "fmt"

// ClassCount is the number of categories the classifier predicts.
const ClassCount = 7

// labels maps classifier output ids to obesity categories.
var labels = [ClassCount]string{
	0: "Normal Weight",
	1: "Insufficient Weight",
	2: "Obesity Type I",
	3: "Obesity Type II",
	4: "Obesity Type III",
	5: "Overweight Level I",
	6: "Overweight Level II",
}

// Labels returns the categories indexed by class id. The slice is a copy.
func Labels() []string {
	out := make([]string, ClassCount)
	copy(out, labels[:])
	return out
}

func ResolveLabel(id int) (string, error) {
	if id < 0 || id >= ClassCount {
		return "", fmt.Errorf("class %d: %w", id, ErrUnknownLabel)
	}
	return labels[id], nil
}

// LabelID is the inverse of ResolveLabel.
func LabelID(name string) (int, bool) {
	for id, label := range labels {
		if label == name {
			return id, true
		}
	}
	return 0, false
}
