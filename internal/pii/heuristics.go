package pii

import (
	"regexp"
	"sort"
	"strings"
)

var (
	capitalizedWord = regexp.MustCompile(`[A-Z][a-z]+(?:['\-][A-Za-z][a-z]+)?\.?`)

	streetAddress = regexp.MustCompile(
		`\b\d{1,5}\s+(?:[A-Z][a-z]+\s+){1,3}(?:Street|St|Avenue|Ave|Road|Rd|Boulevard|Blvd|Lane|Ln|Drive|Dr|Court|Ct|Way|Place|Pl|Terrace|Parkway|Pkwy)\b\.?`,
	)

	knownPlace = buildPlaceExpr(places)
)

var honorifics = map[string]bool{
	"Mr": true, "Mrs": true, "Ms": true, "Miss": true, "Mx": true,
	"Dr": true, "Prof": true, "Sir": true, "Madam": true,
}

var givenNames = toSet(
	"James", "John", "Robert", "Michael", "William", "David", "Richard", "Joseph", "Thomas", "Charles",
	"Christopher", "Daniel", "Matthew", "Anthony", "Mark", "Donald", "Steven", "Paul", "Andrew", "Joshua",
	"Kenneth", "Kevin", "Brian", "George", "Timothy", "Ronald", "Edward", "Jason", "Jeffrey", "Ryan",
	"Jacob", "Gary", "Nicholas", "Eric", "Jonathan", "Stephen", "Larry", "Justin", "Scott", "Brandon",
	"Benjamin", "Samuel", "Gregory", "Alexander", "Frank", "Patrick", "Raymond", "Jack", "Dennis", "Jerry",
	"Tyler", "Aaron", "Jose", "Adam", "Henry", "Nathan", "Douglas", "Zachary", "Peter", "Kyle",
	"Mary", "Patricia", "Jennifer", "Linda", "Elizabeth", "Barbara", "Susan", "Jessica", "Sarah", "Karen",
	"Lisa", "Nancy", "Betty", "Margaret", "Sandra", "Ashley", "Kimberly", "Emily", "Donna", "Michelle",
	"Carol", "Amanda", "Dorothy", "Melissa", "Deborah", "Stephanie", "Rebecca", "Sharon", "Laura", "Cynthia",
	"Kathleen", "Amy", "Angela", "Shirley", "Anna", "Brenda", "Pamela", "Emma", "Nicole", "Helen",
	"Samantha", "Katherine", "Christine", "Debra", "Rachel", "Carolyn", "Janet", "Catherine", "Maria", "Heather",
	"Diane", "Ruth", "Julie", "Olivia", "Joyce", "Virginia", "Victoria", "Kelly", "Lauren", "Christina",
	"Jane", "Alice", "Grace", "Chloe", "Sophia", "Isabella", "Mia", "Ava", "Charlotte", "Amelia",
	"Liam", "Noah", "Oliver", "Elijah", "Lucas", "Mason", "Logan", "Ethan", "Aiden", "Leo",
	"Ahmed", "Mohammed", "Fatima", "Wei", "Hiroshi", "Yuki", "Priya", "Raj", "Carlos", "Sofia",
)

var places = []string{
	"United States", "United Kingdom", "New York", "Los Angeles", "San Francisco", "San Diego", "San Jose",
	"Las Vegas", "New Orleans", "Salt Lake City", "Hong Kong", "New Zealand", "South Africa", "North Carolina",
	"South Carolina", "North Dakota", "South Dakota", "West Virginia", "New Jersey", "New Mexico", "Rhode Island",
	"New Hampshire", "Buenos Aires", "Mexico City", "Rio de Janeiro", "Tel Aviv",
	"America", "Canada", "Mexico", "Brazil", "Argentina", "France", "Germany", "Spain", "Italy", "Portugal",
	"Ireland", "England", "Scotland", "Wales", "Netherlands", "Belgium", "Switzerland", "Austria", "Poland",
	"Sweden", "Norway", "Denmark", "Finland", "Russia", "Ukraine", "Turkey", "Greece", "Israel", "Egypt",
	"Nigeria", "Kenya", "India", "China", "Japan", "Korea", "Vietnam", "Thailand", "Indonesia", "Australia",
	"London", "Paris", "Berlin", "Madrid", "Rome", "Lisbon", "Dublin", "Amsterdam", "Brussels", "Vienna",
	"Prague", "Warsaw", "Stockholm", "Oslo", "Copenhagen", "Helsinki", "Moscow", "Istanbul", "Athens", "Cairo",
	"Lagos", "Nairobi", "Mumbai", "Delhi", "Bangalore", "Beijing", "Shanghai", "Tokyo", "Osaka", "Seoul",
	"Singapore", "Sydney", "Melbourne", "Toronto", "Vancouver", "Montreal", "Chicago", "Houston", "Phoenix",
	"Philadelphia", "Dallas", "Austin", "Seattle", "Denver", "Boston", "Atlanta", "Miami", "Detroit", "Portland",
	"California", "Texas", "Florida", "Washington", "Oregon", "Nevada", "Arizona", "Colorado", "Utah", "Georgia",
	"Ohio", "Michigan", "Illinois", "Pennsylvania", "Virginia", "Massachusetts", "Minnesota", "Wisconsin",
}

func toSet(values ...string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}

func buildPlaceExpr(names []string) *regexp.Regexp {
	sorted := append([]string(nil), names...)
	// longest first so that "New York" wins over a shorter alternative
	sort.SliceStable(sorted, func(i, j int) bool { return len(sorted[i]) > len(sorted[j]) })
	quoted := make([]string, 0, len(sorted))
	for _, n := range sorted {
		quoted = append(quoted, regexp.QuoteMeta(n))
	}
	return regexp.MustCompile(`\b(?:` + strings.Join(quoted, "|") + `)\b`)
}

type token struct {
	word       string
	start, end int
}

// capitalizedRuns groups capitalized words separated by a single space.
func capitalizedRuns(text string) [][]token {
	var runs [][]token
	var current []token
	for _, loc := range capitalizedWord.FindAllStringIndex(text, -1) {
		if loc[0] > 0 && isWordByte(text[loc[0]-1]) {
			continue
		}
		tk := token{word: strings.TrimSuffix(text[loc[0]:loc[1]], "."), start: loc[0], end: loc[1]}
		if len(current) > 0 {
			prev := current[len(current)-1]
			if !(tk.start == prev.end+1 && text[prev.end] == ' ') {
				runs = append(runs, current)
				current = nil
			}
		}
		current = append(current, tk)
	}
	if len(current) > 0 {
		runs = append(runs, current)
	}
	return runs
}

func isWordByte(b byte) bool {
	return b == '_' || b == '@' || b == '.' || (b >= '0' && b <= '9') || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// findPersonNames spots a given name or honorific followed by up to two
// more capitalized words. Words that are known places end the name.
func findPersonNames(text string) []Match {
	var matches []Match
	for _, run := range capitalizedRuns(text) {
		for i := 0; i < len(run); i++ {
			var nameTokens []token
			switch {
			case honorifics[run[i].word] && i+1 < len(run):
				nameTokens = takeNameTokens(run[i+1:], 2)
			case givenNames[run[i].word]:
				nameTokens = takeNameTokens(run[i:], 3)
			}
			if len(nameTokens) == 0 {
				continue
			}
			first, last := nameTokens[0], nameTokens[len(nameTokens)-1]
			end := last.end
			if strings.HasSuffix(text[first.start:end], ".") {
				end--
			}
			matches = append(matches, Match{
				Type:       TypePersonName,
				Value:      text[first.start:end],
				Start:      first.start,
				End:        end,
				Confidence: confidencePersonName,
			})
			i = indexOf(run, last) // resume after the name
		}
	}
	return matches
}

func takeNameTokens(run []token, limit int) []token {
	var out []token
	for _, tk := range run {
		if len(out) == limit || knownPlace.MatchString(tk.word) || honorifics[tk.word] {
			break
		}
		out = append(out, tk)
	}
	return out
}

func indexOf(run []token, tk token) int {
	for i := range run {
		if run[i].start == tk.start {
			return i
		}
	}
	return len(run)
}

func findPlaces(text string) []Match {
	var matches []Match
	for _, expr := range []*regexp.Regexp{streetAddress, knownPlace} {
		for _, loc := range expr.FindAllStringIndex(text, -1) {
			if loc[1]-loc[0] < minAddressLength {
				continue
			}
			matches = append(matches, Match{
				Type:       TypeAddress,
				Value:      text[loc[0]:loc[1]],
				Start:      loc[0],
				End:        loc[1],
				Confidence: confidenceAddress,
			})
		}
	}
	return matches
}
