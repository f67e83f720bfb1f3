package predictor

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"obesitycheck/ml"
)

// Form is the user-facing answer set. Numeric domains are enforced by the
// validate tags; categorical values are checked against the encoding
// tables so an unknown value reports which table rejected it.
type Form struct {
	Age           int     `json:"Age" validate:"min=1,max=100"`
	Gender        string  `json:"Gender" validate:"required"`
	Height        float64 `json:"Height" validate:"gte=1,lte=2.5"`
	Weight        float64 `json:"Weight" validate:"gte=30,lte=200"`
	FamilyHistory string  `json:"family_history_with_overweight" validate:"required"`
	FAVC          string  `json:"FAVC" validate:"required"`
	FCVC          float64 `json:"FCVC" validate:"gte=1,lte=3,whole"`
	NCP           float64 `json:"NCP" validate:"gte=1,lte=4,whole"`
	CAEC          string  `json:"CAEC" validate:"required"`
	SMOKE         string  `json:"SMOKE" validate:"required"`
	CH2O          float64 `json:"CH2O" validate:"gte=1,lte=3,whole"`
	SCC           string  `json:"SCC" validate:"required"`
	FAF           float64 `json:"FAF" validate:"gte=0,lte=3,whole"`
	TUE           float64 `json:"TUE" validate:"gte=0,lte=2,whole"`
	CALC          string  `json:"CALC" validate:"required"`
	MTRANS        string  `json:"MTRANS" validate:"required"`
}

// DefaultForm holds the values the form starts with.
func DefaultForm() Form {
	return Form{
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

func (f Form) Record() ml.Record {
	return ml.Record{
		Age:           f.Age,
		Gender:        f.Gender,
		Height:        f.Height,
		Weight:        f.Weight,
		FamilyHistory: f.FamilyHistory,
		FAVC:          f.FAVC,
		FCVC:          f.FCVC,
		NCP:           f.NCP,
		CAEC:          f.CAEC,
		SMOKE:         f.SMOKE,
		CH2O:          f.CH2O,
		SCC:           f.SCC,
		FAF:           f.FAF,
		TUE:           f.TUE,
		CALC:          f.CALC,
		MTRANS:        f.MTRANS,
	}
}

// FieldError is one rejected field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every field outside its domain.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Message
	}
	return "invalid input: " + strings.Join(parts, "; ")
}

// Validator checks forms against the field domains.
type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("whole", func(fl validator.FieldLevel) bool {
		value := fl.Field().Float()
		return value == math.Trunc(value)
	}); err != nil {
		panic(err)
	}
	return &Validator{validate: v}
}

// Check returns a *ValidationError for domain violations and an
// *ml.UnknownCategoryError for a categorical value outside its table.
func (v *Validator) Check(f Form) error {
	if err := v.validate.Struct(f); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		out := &ValidationError{}
		for _, fe := range verrs {
			out.Fields = append(out.Fields, FieldError{Field: fe.Field(), Message: describe(fe)})
		}
		return out
	}
	for _, c := range categoricalFields(f) {
		if !c.table.Contains(c.value) {
			return &ml.UnknownCategoryError{Field: c.column, Value: c.value}
		}
	}
	return nil
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min", "gte":
		return "must be at least " + fe.Param()
	case "max", "lte":
		return "must be at most " + fe.Param()
	case "whole":
		return "must be a whole number"
	default:
		return fmt.Sprintf("failed %s", fe.Tag())
	}
}

type categoricalField struct {
	column string
	value  string
	table  ml.CodeTable
	set    func(*Form, string)
}

func categoricalFields(f Form) []categoricalField {
	return []categoricalField{
		{ml.ColGender, f.Gender, ml.GenderCodes, func(f *Form, v string) { f.Gender = v }},
		{ml.ColFamilyHistory, f.FamilyHistory, ml.YesNoCodes, func(f *Form, v string) { f.FamilyHistory = v }},
		{ml.ColFAVC, f.FAVC, ml.YesNoCodes, func(f *Form, v string) { f.FAVC = v }},
		{ml.ColCAEC, f.CAEC, ml.SnackCodes, func(f *Form, v string) { f.CAEC = v }},
		{ml.ColSMOKE, f.SMOKE, ml.YesNoCodes, func(f *Form, v string) { f.SMOKE = v }},
		{ml.ColSCC, f.SCC, ml.YesNoCodes, func(f *Form, v string) { f.SCC = v }},
		{ml.ColCALC, f.CALC, ml.AlcoholCodes, func(f *Form, v string) { f.CALC = v }},
		{ml.ColMTRANS, f.MTRANS, ml.TransportCodes, func(f *Form, v string) { f.MTRANS = v }},
	}
}

// FormFromValues reads an HTML form submission. Missing keys keep the
// default value; unparsable numbers are reported as validation errors.
func FormFromValues(values url.Values) (Form, error) {
	f := DefaultForm()
	var bad []FieldError

	readInt := func(key string, dst *int) {
		if raw := strings.TrimSpace(values.Get(key)); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				bad = append(bad, FieldError{Field: key, Message: "must be an integer"})
				return
			}
			*dst = n
		}
	}
	readFloat := func(key string, dst *float64) {
		if raw := strings.TrimSpace(values.Get(key)); raw != "" {
			n, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				bad = append(bad, FieldError{Field: key, Message: "must be a number"})
				return
			}
			*dst = n
		}
	}
	readString := func(key string, dst *string) {
		if raw, ok := values[key]; ok && len(raw) > 0 {
			*dst = raw[0]
		}
	}

	readInt(ml.ColAge, &f.Age)
	readString(ml.ColGender, &f.Gender)
	readFloat(ml.ColHeight, &f.Height)
	readFloat(ml.ColWeight, &f.Weight)
	readString(ml.ColFamilyHistory, &f.FamilyHistory)
	readString(ml.ColFAVC, &f.FAVC)
	readFloat(ml.ColFCVC, &f.FCVC)
	readFloat(ml.ColNCP, &f.NCP)
	readString(ml.ColCAEC, &f.CAEC)
	readString(ml.ColSMOKE, &f.SMOKE)
	readFloat(ml.ColCH2O, &f.CH2O)
	readString(ml.ColSCC, &f.SCC)
	readFloat(ml.ColFAF, &f.FAF)
	readFloat(ml.ColTUE, &f.TUE)
	readString(ml.ColCALC, &f.CALC)
	readString(ml.ColMTRANS, &f.MTRANS)

	if len(bad) > 0 {
		return f, &ValidationError{Fields: bad}
	}
	return f, nil
}
