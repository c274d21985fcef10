package game

// Privacy levels a location can declare.
const (
	PrivacyNone   = "none"
	PrivacyLow    = "low"
	PrivacyMedium = "medium"
	PrivacyHigh   = "high"
)

type Zone struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
	// Discovered defaults to true; only an explicit false hides the zone.
	Discovered          *bool             `yaml:"discovered"`
	DiscoveryConditions []string          `yaml:"discovery_conditions"` // all must hold
	Locked              bool              `yaml:"locked"`
	UnlockWhen          string            `yaml:"unlock_when"`
	Locations           []*Location       `yaml:"locations"`
	Connections         []*ZoneConnection `yaml:"connections"`
	// Entry/exit lists used when movement.use_entry_exit is set: travel may
	// only leave through an exit and arrive at an entrance.
	Entrances []string `yaml:"entrances"`
	Exits     []string `yaml:"exits"`
}

// StartsDiscovered reports whether the zone is known from the first turn.
func (z *Zone) StartsDiscovered() bool {
	return z.Discovered == nil || *z.Discovered
}

// ZoneConnection is a travel edge between zones.
type ZoneConnection struct {
	To       string   `yaml:"to"`
	Distance float64  `yaml:"distance"` // abstract units; time resolved per method
	Methods  []string `yaml:"methods"`  // empty: every configured method allowed
}

// AllowsMethod reports whether this edge permits the travel method.
func (zc *ZoneConnection) AllowsMethod(method string) bool {
	if len(zc.Methods) == 0 {
		return true
	}
	for _, m := range zc.Methods {
		if m == method {
			return true
		}
	}
	return false
}

type Location struct {
	ID          string `yaml:"id"`
	Zone        string `yaml:"zone"` // filled by the loader for nested locations
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Privacy     string `yaml:"privacy"` // defaults to "none"

	// Discovered defaults to true. Locations with discovery conditions are
	// usually declared false and surface once those conditions hold.
	Discovered          *bool    `yaml:"discovered"`
	DiscoveryConditions []string `yaml:"discovery_conditions"` // all must hold
	Locked              bool     `yaml:"locked"`
	UnlockWhen          string   `yaml:"unlock_when"`

	Connections []*Connection  `yaml:"connections"`
	Items       map[string]int `yaml:"items"` // starting location inventory
}

// StartsDiscovered reports whether the location is known from the first turn.
func (l *Location) StartsDiscovered() bool {
	return l.Discovered == nil || *l.Discovered
}

// Connection is a directed local edge to another location in the same zone.
type Connection struct {
	Direction string `yaml:"direction"` // "n", "s", "upstairs", ...
	To        string `yaml:"to"`
	Distance  string `yaml:"distance"` // key of movement.local.distance_modifiers
}

// ConnectionByDirection finds an outgoing edge by direction label.
func (l *Location) ConnectionByDirection(dir string) *Connection {
	for _, c := range l.Connections {
		if c.Direction == dir {
			return c
		}
	}
	return nil
}

// ConnectionTo finds a direct edge to the given location.
func (l *Location) ConnectionTo(id string) *Connection {
	for _, c := range l.Connections {
		if c.To == id {
			return c
		}
	}
	return nil
}

type MovementConfig struct {
	Local        LocalMovement            `yaml:"local"`
	Methods      map[string]*TravelMethod `yaml:"methods"`
	UseEntryExit bool                     `yaml:"use_entry_exit"`
}

type LocalMovement struct {
	BaseTime          int                `yaml:"base_time"` // minutes per distance unit
	DistanceModifiers map[string]float64 `yaml:"distance_modifiers"`
	GotoDefault       int                `yaml:"goto_default"` // minutes for non-adjacent goto
}

// TravelMethod decides cross-zone travel time. Exactly one of TimeCost,
// Category or Speed should be set; they are consulted in that order.
type TravelMethod struct {
	TimeCost int     `yaml:"time_cost"` // minutes per unit distance
	Category string  `yaml:"category"`  // time.categories unit × distance
	Speed    float64 `yaml:"speed"`     // distance / speed → minutes
	// Active methods (walking, cycling) are affected by modifier travel
	// multipliers; passive ones (rideshare) are not.
	Active bool `yaml:"active"`
}
