package service

import "fmt"

const maxNameAttempts = 100

// Name pools for health systems and facilities. Sized so the default
// sixty IDNs always find a free combination without exhausting retries.
var cities = []string{
	"Ashford", "Bayview", "Brookhaven", "Cedar Falls", "Clearwater",
	"Crestwood", "Eastport", "Elmhurst", "Fairmont", "Glenbrook",
	"Granite City", "Greenfield", "Harborview", "Hillcrest", "Kingsport",
	"Lakewood", "Larkspur", "Maplewood", "Meridian", "Millbrook",
	"Northfield", "Oak Ridge", "Oakdale", "Pinehurst", "Plainview",
	"Ridgefield", "Riverton", "Rockport", "Silver Creek", "Springdale",
	"Stonebridge", "Summerville", "Thornton", "Valley Forge", "Westbrook",
	"Whitfield", "Willow Grove", "Winfield", "Woodhaven", "Yorktown",
	"Avondale", "Bellwood", "Claremont", "Dunmore", "Easton",
	"Fallbrook", "Grandview", "Haverford", "Ironwood", "Jasper",
	"Kenwood", "Lindenhurst", "Montrose", "Newbury", "Ashland",
	"Parkville", "Quincy", "Redfield", "Sheridan", "Trenton",
}

var firstNames = []string{
	"Agnes", "Albert", "Andrew", "Anne", "Anthony",
	"Barnabas", "Benedict", "Catherine", "Cecilia", "Charles",
	"Clare", "David", "Dominic", "Edward", "Elizabeth",
	"Francis", "George", "Gregory", "Helen", "James",
	"John", "Joseph", "Jude", "Luke", "Margaret",
	"Mark", "Martin", "Mary", "Matthew", "Michael",
	"Nicholas", "Patrick", "Paul", "Peter", "Rose",
	"Stephen", "Teresa", "Thomas", "Vincent", "Xavier",
}

var lastNames = []string{
	"Abbott", "Barrett", "Bennett", "Caldwell", "Carmichael",
	"Chandler", "Coleman", "Cunningham", "Davenport", "Donovan",
	"Ellsworth", "Fitzgerald", "Foster", "Gallagher", "Hammond",
	"Harrington", "Hayes", "Holloway", "Ingram", "Keller",
	"Lancaster", "Langley", "Mercer", "Monroe", "Norwood",
	"Palmer", "Pembroke", "Prescott", "Radcliffe", "Sinclair",
	"Sterling", "Sutton", "Thatcher", "Vaughn", "Wakefield",
	"Walsh", "Wentworth", "Whitaker", "Winslow", "Youngblood",
}

// healthSystemName draws one of four naming styles until a free name
// turns up. The ordinal fallback only fires when a caller asks for more
// IDNs than the pools can name.
func (b *builder) healthSystemName(taken map[string]struct{}, ordinal int) string {
	for attempt := 0; attempt < maxNameAttempts; attempt++ {
		var name string
		switch b.rand.intBetween(0, 4) {
		case 0:
			name = pickOne(b.rand, cities) + " Health System"
		case 1:
			name = "St. " + pickOne(b.rand, firstNames) + " Medical Center"
		case 2:
			name = pickOne(b.rand, lastNames) + " Regional Health"
		default:
			name = pickOne(b.rand, cities) + " Memorial Healthcare"
		}
		if _, dup := taken[name]; !dup {
			return name
		}
	}
	return fmt.Sprintf("%s Health System %d", pickOne(b.rand, cities), ordinal)
}
