package bookingcom

import "strings"

type destination struct {
	name string
	id   int64
}

// Ordered so the "supported destinations" hint is stable.
var destinations = []destination{
	{"miami", -1548846},
	{"miami beach", -1548846},
	{"new york", -2601889},
	{"los angeles", -1752729},
	{"san diego", -1768774},
	{"denver", -1712385},
	{"amsterdam", -2140479},
	{"london", -2601889},
	{"paris", -1456928},
	{"rome", -126693},
	{"barcelona", -372490},
	{"berlin", -1746443},
	{"tokyo", -246227},
	{"singapore", -73635},
	{"bangkok", -3414440},
	{"dubai", -782831},
	{"las vegas", -1771291},
	{"orlando", -1771217},
	{"san francisco", -1746462},
	{"chicago", -1743924},
	{"boston", -2073502},
	{"seattle", -1771260},
}

var destinationIDs = func() map[string]int64 {
	m := make(map[string]int64, len(destinations))
	for _, d := range destinations {
		m[d.name] = d.id
	}
	return m
}()

// supportedSample is how many names an unsupported-destination error lists.
const supportedSample = 10

// LookupDestination maps a human place name to the provider's city id.
func LookupDestination(name string) (int64, bool) {
	id, ok := destinationIDs[strings.ToLower(strings.TrimSpace(name))]
	return id, ok
}

// DestinationNames returns every supported name in table order.
func DestinationNames() []string {
	out := make([]string, len(destinations))
	for i, d := range destinations {
		out[i] = d.name
	}
	return out
}

func sampleDestinations() []string {
	names := DestinationNames()
	if len(names) > supportedSample {
		names = names[:supportedSample]
	}
	return names
}
