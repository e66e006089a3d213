package models

// Form field names, shared by the HTML form, the JSON API and the
// preprocessor artifact column names.
const (
	FieldYear        = "Year"
	FieldRainfall    = "average_rain_fall_mm_per_year"
	FieldPesticides  = "pesticides_tonnes"
	FieldTemperature = "avg_temp"
	FieldArea        = "Area"
	FieldItem        = "Item"
)

// FieldNames lists the input fields in feature order.
func FieldNames() []string {
	return []string{FieldYear, FieldRainfall, FieldPesticides, FieldTemperature, FieldArea, FieldItem}
}

// RawInput is a form submission before validation.
type RawInput struct {
	Year        string `form:"Year" json:"Year"`
	Rainfall    string `form:"average_rain_fall_mm_per_year" json:"average_rain_fall_mm_per_year"`
	Pesticides  string `form:"pesticides_tonnes" json:"pesticides_tonnes"`
	Temperature string `form:"avg_temp" json:"avg_temp"`
	Area        string `form:"Area" json:"Area"`
	Item        string `form:"Item" json:"Item"`
}

// Values returns the raw fields in feature order.
func (r RawInput) Values() []string {
	return []string{r.Year, r.Rainfall, r.Pesticides, r.Temperature, r.Area, r.Item}
}

// ValidatedInput holds fully checked, typed values. Only the validation
// package constructs it.
type ValidatedInput struct {
	Year        int     `json:"year"`
	Rainfall    float64 `json:"average_rain_fall_mm_per_year"`
	Pesticides  float64 `json:"pesticides_tonnes"`
	Temperature float64 `json:"avg_temp"`
	Area        string  `json:"area"`
	Item        string  `json:"item"`
}

// FeatureRecord is the ordered record handed to the feature transform.
// It is comparable and used as a cache key.
type FeatureRecord struct {
	Year        float64
	Rainfall    float64
	Pesticides  float64
	Temperature float64
	Area        string
	Item        string
}

func NewFeatureRecord(in ValidatedInput) FeatureRecord {
	return FeatureRecord{
		Year:        float64(in.Year),
		Rainfall:    in.Rainfall,
		Pesticides:  in.Pesticides,
		Temperature: in.Temperature,
		Area:        in.Area,
		Item:        in.Item,
	}
}

// Numeric returns the numeric column by field name.
func (f FeatureRecord) Numeric(name string) (float64, bool) {
	switch name {
	case FieldYear:
		return f.Year, true
	case FieldRainfall:
		return f.Rainfall, true
	case FieldPesticides:
		return f.Pesticides, true
	case FieldTemperature:
		return f.Temperature, true
	}
	return 0, false
}

// Categorical returns the string column by field name.
func (f FeatureRecord) Categorical(name string) (string, bool) {
	switch name {
	case FieldArea:
		return f.Area, true
	case FieldItem:
		return f.Item, true
	}
	return "", false
}
