package scraper

// Static assignment of US states to scraper workers. A worker only ever
// receives cities from its own states, in table order.
var WorkerStates = map[string][]string{
	"vps-1": {"california", "nevada", "oregon"},
	"vps-2": {"arizona", "washington", "colorado", "utah"},
	"vps-3": {"texas", "new-mexico", "oklahoma"},
	"vps-4": {"illinois", "ohio", "michigan", "indiana", "wisconsin"},
	"vps-5": {"florida", "georgia", "north-carolina", "south-carolina", "tennessee"},
}

// CitiesByState lists scrape targets per state, ordered by priority.
var CitiesByState = map[string][]string{
	"california": {
		"los-angeles", "san-diego", "san-jose", "san-francisco", "fresno",
		"sacramento", "oakland", "bakersfield", "stockton", "riverside",
		"santa-ana", "anaheim", "irvine", "long-beach", "modesto",
		"glendale", "huntington-beach", "santa-clarita", "garden-grove",
		"oceanside", "rancho-cucamonga", "ontario-ca", "santa-rosa", "elk-grove",
		"corona", "lancaster", "palmdale", "salinas", "pomona", "hayward",
		"escondido", "sunnyvale", "torrance", "pasadena", "orange-ca",
		"fullerton", "thousand-oaks", "roseville", "concord", "simi-valley",
		"santa-clara", "victorville", "vallejo", "berkeley", "el-monte",
		"downey", "costa-mesa", "inglewood", "san-buenaventura", "murrieta",
	},
	"arizona": {
		"phoenix", "tucson", "mesa", "chandler", "scottsdale",
		"glendale-az", "gilbert", "tempe", "peoria-az", "surprise",
		"yuma", "avondale", "goodyear", "flagstaff", "buckeye",
	},
	"nevada": {
		"las-vegas", "henderson", "reno", "north-las-vegas", "sparks",
		"carson-city", "elko", "boulder-city",
	},
	"oregon": {
		"portland", "salem", "eugene", "gresham", "hillsboro",
		"beaverton", "bend", "medford", "springfield-or", "corvallis",
	},
	"washington": {
		"seattle", "spokane", "tacoma", "vancouver-wa", "bellevue",
		"kent", "everett", "renton", "spokane-valley", "federal-way",
		"yakima", "bellingham", "kirkland", "auburn-wa", "redmond",
	},
	"colorado": {
		"denver", "colorado-springs", "aurora-co", "fort-collins", "lakewood",
		"thornton", "arvada", "westminster-co", "pueblo", "centennial",
		"boulder", "greeley", "longmont", "loveland",
	},
	"utah": {
		"salt-lake-city", "west-valley-city", "provo", "west-jordan", "orem",
		"sandy", "ogden", "st-george", "layton", "south-jordan",
	},
	"texas": {
		"houston", "san-antonio", "dallas", "austin", "fort-worth",
		"el-paso", "arlington-tx", "corpus-christi", "plano", "laredo",
		"lubbock", "garland", "irving", "amarillo", "grand-prairie",
		"brownsville", "mckinney", "frisco", "pasadena-tx", "killeen",
		"mcallen", "mesquite", "midland", "denton", "waco",
		"carrollton", "round-rock", "abilene", "pearland", "richardson",
		"college-station", "league-city", "sugar-land", "longview", "beaumont",
		"odessa", "tyler", "conroe", "new-braunfels", "edinburg",
	},
	"new-mexico": {
		"albuquerque", "las-cruces", "rio-rancho", "santa-fe", "roswell",
		"farmington", "clovis-nm",
	},
	"oklahoma": {
		"oklahoma-city", "tulsa", "norman", "broken-arrow", "lawton",
		"edmond", "moore", "midwest-city",
	},
	"illinois": {
		"chicago", "aurora-il", "rockford", "joliet", "naperville",
		"springfield-il", "peoria-il", "elgin", "waukegan", "champaign",
	},
	"ohio": {
		"columbus", "cleveland", "cincinnati", "toledo", "akron",
		"dayton", "parma", "canton", "youngstown", "lorain",
	},
	"michigan": {
		"detroit", "grand-rapids", "warren", "sterling-heights", "ann-arbor",
		"lansing", "flint", "dearborn", "livonia", "troy-mi",
	},
	"indiana": {
		"indianapolis", "fort-wayne", "evansville", "south-bend", "carmel",
		"fishers", "bloomington-in", "hammond", "gary", "muncie",
	},
	"wisconsin": {
		"milwaukee", "madison", "green-bay", "kenosha", "racine",
		"appleton", "waukesha", "eau-claire", "oshkosh", "janesville",
	},
	"florida": {
		"jacksonville", "miami", "tampa", "orlando", "st-petersburg",
		"hialeah", "tallahassee", "fort-lauderdale", "port-st-lucie", "cape-coral",
		"pembroke-pines", "hollywood-fl", "miramar", "gainesville-fl", "coral-springs",
		"miami-gardens", "clearwater", "palm-bay", "pompano-beach", "west-palm-beach",
		"lakeland", "davie", "boca-raton", "sunrise", "plantation",
		"deltona", "fort-myers", "palm-coast", "deerfield-beach", "melbourne-fl",
	},
	"georgia": {
		"atlanta", "augusta", "columbus-ga", "macon", "savannah",
		"athens", "sandy-springs", "roswell-ga", "johns-creek", "albany-ga",
		"warner-robins", "alpharetta", "marietta", "valdosta", "smyrna-ga",
	},
	"north-carolina": {
		"charlotte", "raleigh", "greensboro", "durham", "winston-salem",
		"fayetteville", "cary", "wilmington-nc", "high-point", "greenville-nc",
		"asheville", "concord-nc", "gastonia", "jacksonville-nc", "chapel-hill",
	},
	"south-carolina": {
		"charleston", "columbia-sc", "north-charleston", "mount-pleasant", "rock-hill",
		"greenville-sc", "summerville", "goose-creek", "hilton-head", "spartanburg",
	},
	"tennessee": {
		"nashville", "memphis", "knoxville", "chattanooga", "clarksville",
		"murfreesboro", "franklin-tn", "jackson-tn", "johnson-city", "bartlett",
	},
}

// Target is one scrape target owned by a worker.
type Target struct {
	City  string
	State string
}

// ValidWorker reports whether id is in the static assignment table.
func ValidWorker(id string) bool {
	_, ok := WorkerStates[id]
	return ok
}

// WorkerIDs returns the configured worker ids.
func WorkerIDs() []string {
	ids := make([]string, 0, len(WorkerStates))
	for id := range WorkerStates {
		ids = append(ids, id)
	}
	return ids
}

// TargetsFor returns a worker's cities in assignment-table order. Order
// matters: get-job claims the first eligible target.
func TargetsFor(workerID string) []Target {
	states, ok := WorkerStates[workerID]
	if !ok {
		return nil
	}
	var targets []Target
	for _, state := range states {
		for _, city := range CitiesByState[state] {
			targets = append(targets, Target{City: city, State: state})
		}
	}
	return targets
}

// TotalCities counts every configured scrape target across all states.
func TotalCities() int {
	n := 0
	for _, cities := range CitiesByState {
		n += len(cities)
	}
	return n
}
