package predictor

import (
	"strconv"

	"obesitycheck/ml"
)

const (
	KindInt    = "int"
	KindFloat  = "float"
	KindChoice = "choice"
)

// Field describes one input the way the form, the CLI prompts and
// /api/schema present it.
type Field struct {
	Name     string   `json:"name"`
	Question string   `json:"question"`
	Section  string   `json:"section"`
	Kind     string   `json:"kind"`
	Min      float64  `json:"min,omitempty"`
	Max      float64  `json:"max,omitempty"`
	Step     float64  `json:"step,omitempty"`
	Options  []string `json:"options,omitempty"`
	Default  string   `json:"default"`
}

const (
	sectionPhysical = "Physical attributes and history"
	sectionEating   = "Eating habits"
	sectionActivity = "Activity and lifestyle"
)

var yesNo = []string{"Yes", "No"}

// Schema lists the inputs in the order they are asked.
func Schema() []Field {
	d := DefaultForm().Values()
	return fields{
		{Name: ml.ColAge, Question: "Age (years)", Section: sectionPhysical, Kind: KindInt, Min: 1, Max: 100, Step: 1},
		{Name: ml.ColGender, Question: "Gender", Section: sectionPhysical, Kind: KindChoice, Options: []string{"Male", "Female"}},
		{Name: ml.ColHeight, Question: "Height (m)", Section: sectionPhysical, Kind: KindFloat, Min: 1, Max: 2.5, Step: 0.01},
		{Name: ml.ColWeight, Question: "Weight (kg)", Section: sectionPhysical, Kind: KindFloat, Min: 30, Max: 200, Step: 0.1},
		{Name: ml.ColFamilyHistory, Question: "Family history of overweight?", Section: sectionPhysical, Kind: KindChoice, Options: yesNo},
		{Name: ml.ColFAVC, Question: "Frequent high calorie food (FAVC)?", Section: sectionEating, Kind: KindChoice, Options: yesNo},
		{Name: ml.ColFCVC, Question: "Vegetables with meals (FCVC)", Section: sectionEating, Kind: KindFloat, Min: 1, Max: 3, Step: 1},
		{Name: ml.ColNCP, Question: "Main meals per day (NCP)", Section: sectionEating, Kind: KindFloat, Min: 1, Max: 4, Step: 1},
		{Name: ml.ColCAEC, Question: "Food between meals (CAEC)?", Section: sectionEating, Kind: KindChoice, Options: []string{"No", "Sometimes", "Frequently", "Always"}},
		{Name: ml.ColCALC, Question: "Alcohol (CALC)?", Section: sectionEating, Kind: KindChoice, Options: []string{"No", "Sometimes", "Frequently"}},
		{Name: ml.ColCH2O, Question: "Water per day in liters (CH2O)", Section: sectionEating, Kind: KindFloat, Min: 1, Max: 3, Step: 1},
		{Name: ml.ColSCC, Question: "Do you drink caloric beverages (SCC)?", Section: sectionEating, Kind: KindChoice, Options: yesNo},
		{Name: ml.ColSMOKE, Question: "Do you smoke (SMOKE)?", Section: sectionActivity, Kind: KindChoice, Options: yesNo},
		{Name: ml.ColFAF, Question: "Physical activity per week (FAF)", Section: sectionActivity, Kind: KindFloat, Min: 0, Max: 3, Step: 1},
		{Name: ml.ColTUE, Question: "Time on devices per day (TUE)", Section: sectionActivity, Kind: KindFloat, Min: 0, Max: 2, Step: 1},
		{Name: ml.ColMTRANS, Question: "Main transportation (MTRANS)", Section: sectionActivity, Kind: KindChoice, Options: []string{"Public_Transportation", "Automobile", "Walking", "Motorbike", "Bike"}},
	}.withDefaults(d)
}

type fields []Field

func (fs fields) withDefaults(values map[string]string) []Field {
	for i := range fs {
		fs[i].Default = values[fs[i].Name]
	}
	return fs
}

// Values formats every answer the way FormFromValues reads it back.
func (f Form) Values() map[string]string {
	num := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	return map[string]string{
		ml.ColAge:           strconv.Itoa(f.Age),
		ml.ColGender:        f.Gender,
		ml.ColHeight:        num(f.Height),
		ml.ColWeight:        num(f.Weight),
		ml.ColFamilyHistory: f.FamilyHistory,
		ml.ColFAVC:          f.FAVC,
		ml.ColFCVC:          num(f.FCVC),
		ml.ColNCP:           num(f.NCP),
		ml.ColCAEC:          f.CAEC,
		ml.ColSMOKE:         f.SMOKE,
		ml.ColCH2O:          num(f.CH2O),
		ml.ColSCC:           f.SCC,
		ml.ColFAF:           num(f.FAF),
		ml.ColTUE:           num(f.TUE),
		ml.ColCALC:          f.CALC,
		ml.ColMTRANS:        f.MTRANS,
	}
}
