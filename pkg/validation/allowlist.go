package validation

import "strings"

// AllowList is an immutable set of permitted values for a categorical field.
// Values keep their declaration order for display.
type AllowList struct {
	values []string
	index  map[string]struct{}
}

func NewAllowList(values ...string) *AllowList {
	l := &AllowList{
		values: append([]string(nil), values...),
		index:  make(map[string]struct{}, len(values)),
	}
	for _, v := range values {
		l.index[v] = struct{}{}
	}
	return l
}

// Contains reports exact, case-sensitive membership.
func (l *AllowList) Contains(value string) bool {
	_, ok := l.index[value]
	return ok
}

// Values returns a copy of the allowed values in declaration order.
func (l *AllowList) Values() []string {
	return append([]string(nil), l.values...)
}

func (l *AllowList) Len() int {
	return len(l.values)
}

func (l *AllowList) String() string {
	return strings.Join(l.values, ", ")
}

var allowedAreas = NewAllowList(
	"Albania", "Algeria", "Angola", "Argentina", "Armenia", "Australia", "Austria", "Azerbaijan",
	"Bahamas", "Bahrain", "Bangladesh", "Belarus", "Belgium", "Botswana", "Brazil", "Bulgaria",
	"Burkina Faso", "Burundi", "Cameroon", "Canada", "Central African Republic", "Chile", "Colombia",
	"Croatia", "Denmark", "Dominican Republic", "Ecuador", "Egypt", "El Salvador", "Eritrea", "Estonia",
	"Finland", "France", "Germany", "Ghana", "Greece", "Guatemala", "Guinea", "Guyana", "Haiti", "Honduras",
	"Hungary", "India", "Indonesia", "Iraq", "Ireland", "Italy", "Jamaica", "Japan", "Kazakhstan", "Kenya",
	"Latvia", "Lebanon", "Lesotho", "Libya", "Lithuania", "Madagascar", "Malawi", "Malaysia", "Mali",
	"Mauritania", "Mauritius", "Mexico", "Montenegro", "Morocco", "Mozambique", "Namibia", "Nepal",
	"Netherlands", "New Zealand", "Nicaragua", "Niger", "Norway", "Pakistan", "Papua New Guinea",
	"Peru", "Poland", "Portugal", "Qatar", "Romania", "Rwanda", "Saudi Arabia", "Senegal", "Slovenia",
	"South Africa", "Spain", "Sri Lanka", "Sudan", "Suriname", "Sweden", "Switzerland", "Tajikistan",
	"Thailand", "Tunisia", "Turkey", "Uganda", "Ukraine", "United Kingdom", "Uruguay", "Zambia", "Zimbabwe",
)

// Item spellings match the training data, including "Soyabeaans" and "Yarns".
var allowedItems = NewAllowList(
	"Maize", "Potatoes", "Rice, paddy", "Sorghum", "Soyabeaans", "Wheat",
	"Cassava", "Sweet potatoes", "Plantains and others", "Yarns",
)

// AllowedAreas returns the compiled-in country allow-list.
func AllowedAreas() *AllowList { return allowedAreas }

// AllowedItems returns the compiled-in crop allow-list.
func AllowedItems() *AllowList { return allowedItems }
