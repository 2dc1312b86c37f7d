package directions

// Response is the subset of the Google Directions JSON the collector
// reads. The raw body is persisted verbatim alongside it, so fields not
// modelled here are still retained in history.
type Response struct {
	Status       string  `json:"status"`
	ErrorMessage string  `json:"error_message,omitempty"`
	Routes       []Route `json:"routes"`
}

// Route is one path candidate; index 0 is the provider's primary.
type Route struct {
	Summary          string   `json:"summary"`
	Warnings         []string `json:"warnings"`
	Legs             []Leg    `json:"legs"`
	OverviewPolyline Polyline `json:"overview_polyline"`
}

// Polyline carries the encoded overview path (1e-5 precision). The
// collector stores it with the raw response; decoding happens in the
// rendering layer.
type Polyline struct {
	Points string `json:"points"`
}

type Leg struct {
	Distance          TextValue  `json:"distance"`
	Duration          TextValue  `json:"duration"`
	DurationInTraffic *TextValue `json:"duration_in_traffic,omitempty"`
	StartAddress      string     `json:"start_address"`
	EndAddress        string     `json:"end_address"`
	Steps             []Step     `json:"steps"`
}

type TextValue struct {
	Value int    `json:"value"`
	Text  string `json:"text"`
}

type Step struct {
	HTMLInstructions string     `json:"html_instructions"`
	Distance         TextValue  `json:"distance"`
	Duration         TextValue  `json:"duration"`
	TravelMode       string     `json:"travel_mode"`
	StartLocation    *LatLng    `json:"start_location,omitempty"`
	EndLocation      *LatLng    `json:"end_location,omitempty"`
}

type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// EffectiveDuration is duration-in-traffic when present, else the
// free-flow duration.
func (l Leg) EffectiveDuration() int {
	if l.DurationInTraffic != nil {
		return l.DurationInTraffic.Value
	}
	return l.Duration.Value
}

// Leg0 returns the first leg of a candidate, or a zero leg. Directions
// responses without waypoints always carry exactly one leg.
func (r Route) Leg0() Leg {
	if len(r.Legs) > 0 {
		return r.Legs[0]
	}
	return Leg{}
}
