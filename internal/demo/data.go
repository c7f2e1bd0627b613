// Package demo is an in-memory fleet backend speaking the same envelope API
// as production, used by `fleetgrid demo-server` and the client tests.
package demo

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oakwood-commons/fleetgrid/internal/resources"
	"github.com/oakwood-commons/fleetgrid/pkg/grid"
)

// DefaultRows is the number of generated rows per resource.
const DefaultRows = 240

// Store holds the rows of every resource.
type Store struct {
	mu   sync.RWMutex
	rows map[string][]grid.Row
	ids  *rand.ChaCha8
}

// NewStore generates n rows for every resource from seed. The same seed
// always yields the same data, ids included.
func NewStore(seed uint64, n int) *Store {
	var key [32]byte
	for i := range 8 {
		key[i] = byte(seed >> (8 * i))
	}
	src := rand.NewChaCha8(key)
	s := &Store{rows: make(map[string][]grid.Row), ids: src}
	g := &generator{rng: rand.New(src), base: time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)}
	for _, name := range resources.Names() {
		gen := generators[name]
		rows := make([]grid.Row, n)
		for i := range rows {
			r := gen(g, i)
			r[grid.IDField] = s.newID()
			rows[i] = r
		}
		s.rows[name] = rows
	}
	return s
}

func (s *Store) newID() string {
	id, err := uuid.NewRandomFromReader(s.ids)
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Rows returns a snapshot of the rows of resource.
func (s *Store) Rows(resource string) []grid.Row {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]grid.Row(nil), s.rows[resource]...)
}

// Insert appends rows to resource, assigning ids to rows without one.
func (s *Store) Insert(resource string, rows ...grid.Row) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range rows {
		if r.Key() == "" {
			r[grid.IDField] = s.newID()
		}
		s.rows[resource] = append(s.rows[resource], r)
	}
}

type generator struct {
	rng  *rand.Rand
	base time.Time
}

func (g *generator) pick(vals ...string) string { return vals[g.rng.IntN(len(vals))] }

func (g *generator) digits(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte('0' + g.rng.IntN(10))
	}
	return string(b)
}

// daysAgo returns an RFC 3339 timestamp up to max days before the base date.
func (g *generator) daysAgo(max int) string {
	d := time.Duration(g.rng.IntN(max*24*60)) * time.Minute
	return g.base.Add(-d).Format(time.RFC3339)
}

// maybe returns v, or nil with probability p.
func (g *generator) maybe(p float64, v any) any {
	if g.rng.Float64() < p {
		return nil
	}
	return v
}

var (
	firstNames = []string{"Ana", "Ben", "Chidi", "Dana", "Emil", "Farah", "Goran", "Hana", "Ivan", "Jia", "Kofi", "Lena", "Mateo", "Nia", "Omar", "Priya"}
	lastNames  = []string{"Alvarez", "Brandt", "Chen", "Dubois", "Eriksen", "Fischer", "Garcia", "Haddad", "Ito", "Jensen", "Kowalski", "Larsen", "Moreau", "Novak"}
	companies  = []string{"Northwind Logistics", "Blue Harbor Freight", "Cascade Couriers", "Delta Cold Chain", "Evergreen Transit", "Falcon Fleet", "Granite Haulage", "Helix Rentals"}
	groups     = []string{"North", "South", "East", "West", "Depot A", "Depot B", "Spares"}
	carriers   = []string{"Vodafone", "Orange", "T-Mobile", "Telia", "AT&T", "Verizon"}
)

func (g *generator) person() string {
	return g.pick(firstNames...) + " " + g.pick(lastNames...)
}

var generators = map[string]func(g *generator, i int) grid.Row{
	"devices": func(g *generator, i int) grid.Row {
		return grid.Row{
			"name":     fmt.Sprintf("Tracker %04d", i+1),
			"imei":     "35" + g.digits(13),
			"model":    g.pick("FMB920", "FMC130", "GV300", "TMT250", "AT4"),
			"status":   g.pick("online", "online", "online", "offline", "maintenance"),
			"group":    g.pick(groups...),
			"battery":  g.maybe(0.08, g.rng.IntN(101)),
			"firmware": fmt.Sprintf("03.%02d.%02d", g.rng.IntN(30), g.rng.IntN(20)),
			"lastSeen": g.maybe(0.05, g.daysAgo(30)),
		}
	},
	"vehicles": func(g *generator, i int) grid.Row {
		return grid.Row{
			"plate":    fmt.Sprintf("%c%c-%03d-%c%c", 'A'+g.rng.IntN(26), 'A'+g.rng.IntN(26), g.rng.IntN(1000), 'A'+g.rng.IntN(26), 'A'+g.rng.IntN(26)),
			"make":     g.pick("Volvo", "Scania", "MAN", "Ford", "Mercedes-Benz", "Iveco"),
			"model":    g.pick("FH16", "R450", "TGX", "Transit", "Actros", "Daily"),
			"year":     2012 + g.rng.IntN(14),
			"vin":      fmt.Sprintf("WDB%014d", g.rng.Int64N(1e14)),
			"driver":   g.maybe(0.2, g.person()),
			"odometer": g.rng.IntN(900000),
			"status":   g.pick("active", "active", "idle", "in service", "retired"),
		}
	},
	"drivers": func(g *generator, i int) grid.Row {
		name := g.person()
		return grid.Row{
			"name":          name,
			"licenseNumber": fmt.Sprintf("DL-%07d", g.rng.IntN(1e7)),
			"phone":         "+1 555 " + g.digits(7),
			"email":         fmt.Sprintf("driver%03d@fleet.example", i+1),
			"vehicle":       g.maybe(0.25, fmt.Sprintf("V-%03d", g.rng.IntN(500))),
			"active":        g.rng.IntN(5) != 0,
			"hiredAt":       g.daysAgo(3650),
		}
	},
	"accounts": func(g *generator, i int) grid.Row {
		return grid.Row{
			"company":   fmt.Sprintf("%s %d", g.pick(companies...), i+1),
			"contact":   g.person(),
			"email":     fmt.Sprintf("ops%03d@customer.example", i+1),
			"plan":      g.pick("starter", "business", "enterprise"),
			"devices":   g.rng.IntN(2000),
			"status":    g.pick("active", "active", "trial", "suspended"),
			"createdAt": g.daysAgo(1500),
		}
	},
	"groups": func(g *generator, i int) grid.Row {
		return grid.Row{
			"name":        fmt.Sprintf("%s %d", g.pick(groups...), i+1),
			"description": g.maybe(0.3, "Units assigned to "+g.pick(groups...)),
			"account":     g.pick(companies...),
			"devices":     g.rng.IntN(300),
			"createdAt":   g.daysAgo(900),
		}
	},
	"sims": func(g *generator, i int) grid.Row {
		return grid.Row{
			"iccid":       "8944" + g.digits(15),
			"msisdn":      "+44 7" + g.digits(9),
			"carrier":     g.pick(carriers...),
			"status":      g.pick("active", "active", "suspended", "inventory"),
			"dataUsedMb":  g.maybe(0.1, g.rng.IntN(5000)),
			"device":      g.maybe(0.15, fmt.Sprintf("Tracker %04d", g.rng.IntN(DefaultRows)+1)),
			"activatedAt": g.maybe(0.1, g.daysAgo(700)),
		}
	},
	"alerts": func(g *generator, i int) grid.Row {
		typ := g.pick("overspeed", "geofence exit", "low battery", "harsh braking", "power cut", "idle too long")
		return grid.Row{
			"type":         typ,
			"severity":     g.pick("info", "warning", "warning", "critical"),
			"device":       fmt.Sprintf("Tracker %04d", g.rng.IntN(DefaultRows)+1),
			"message":      fmt.Sprintf("%s detected", typ),
			"acknowledged": g.rng.IntN(3) == 0,
			"raisedAt":     g.daysAgo(14),
		}
	},
	"reports": func(g *generator, i int) grid.Row {
		return grid.Row{
			"name":     fmt.Sprintf("%s report %d", g.pick("Mileage", "Fuel", "Trips", "Stops", "Alerts"), i+1),
			"kind":     g.pick("mileage", "fuel", "trips", "stops", "alerts"),
			"schedule": g.pick("daily", "weekly", "monthly", "manual"),
			"owner":    g.person(),
			"format":   g.pick("pdf", "xlsx", "csv"),
			"lastRun":  g.maybe(0.2, g.daysAgo(60)),
		}
	},
}
