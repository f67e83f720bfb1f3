package ml

func exampleRecord() Record {
	return Record{
		Age:           25,
		Gender:        "Male",
		Height:        1.75,
		Weight:        70.0,
		FamilyHistory: "Yes",
		FAVC:          "Yes",
		FCVC:          2.0,
		NCP:           3.0,
		CAEC:          "Sometimes",
		SMOKE:         "No",
		CH2O:          2.0,
		SCC:           "No",
		FAF:           1.0,
		TUE:           1.0,
		CALC:          "Sometimes",
		MTRANS:        "Public_Transportation",
	}
}

func identityScaler() *StandardScaler {
	n := len(NumericalColumns())
	mean := make([]float64, n)
	scale := make([]float64, n)
	for i := range scale {
		scale[i] = 1
	}
	s, err := NewStandardScaler(NumericalColumns(), mean, scale)
	if err != nil {
		panic(err)
	}
	return s
}

func constantScaler(mean, scale float64) *StandardScaler {
	n := len(NumericalColumns())
	means := make([]float64, n)
	scales := make([]float64, n)
	for i := range means {
		means[i] = mean
		scales[i] = scale
	}
	s, err := NewStandardScaler(NumericalColumns(), means, scales)
	if err != nil {
		panic(err)
	}
	return s
}
