// Package resources defines the fleet modules the console can browse: the
// backend endpoint of each and the grid columns it shows.
package resources

import (
	"fmt"
	"sort"
	"strings"

	"github.com/oakwood-commons/fleetgrid/pkg/grid"
)

// Resource is one browsable backend collection.
type Resource struct {
	// Name is the endpoint path segment and CLI argument.
	Name  string
	Title string
	// Columns in default order.
	Columns []grid.Column
	// Search lists the fields a free-text search matches.
	Search []string
	// Required fields must be present on imported rows.
	Required []string
}

// Column returns the column definition for field.
func (r Resource) Column(field string) (grid.Column, bool) {
	for _, c := range r.Columns {
		if c.Field == field {
			return c, true
		}
	}
	return grid.Column{}, false
}

// Fields returns the column fields in order, skipping action columns.
func (r Resource) Fields() []string {
	out := make([]string, 0, len(r.Columns))
	for _, c := range r.Columns {
		if c.Type != grid.TypeActions {
			out = append(out, c.Field)
		}
	}
	return out
}

// Matches reports whether any search field of row contains needle, ignoring case.
func (r Resource) Matches(row grid.Row, needle string) bool {
	needle = strings.ToLower(strings.TrimSpace(needle))
	if needle == "" {
		return true
	}
	for _, f := range r.Search {
		v := row.Value(f)
		if v != nil && strings.Contains(strings.ToLower(fmt.Sprint(v)), needle) {
			return true
		}
	}
	return false
}

func text(field, header string, width int) grid.Column {
	return grid.Column{Field: field, HeaderName: header, Width: width, Sortable: true, Filterable: true, Resizable: true, Type: grid.TypeString}
}

func number(field, header string, width int) grid.Column {
	c := text(field, header, width)
	c.Type = grid.TypeNumber
	return c
}

func date(field, header string) grid.Column {
	c := text(field, header, 160)
	c.Type = grid.TypeDate
	return c
}

func flag(field, header string) grid.Column {
	c := text(field, header, 90)
	c.Type = grid.TypeBoolean
	return c
}

func idColumn() grid.Column {
	return grid.Column{Field: grid.IDField, HeaderName: "ID", Width: 100, Sortable: true, Resizable: true, Pinned: grid.PinLeft}
}

func actions() grid.Column {
	return grid.Column{Field: "actions", HeaderName: "Actions", Width: 90, Type: grid.TypeActions, Pinned: grid.PinRight}
}

func percent(v any, _ grid.Row) string {
	s := grid.FormatValue(grid.TypeNumber, v)
	if s == "" {
		return ""
	}
	return s + "%"
}

func withRenderer(c grid.Column, r grid.Renderer) grid.Column {
	c.Renderer = r
	return c
}

func hidden(c grid.Column) grid.Column {
	c.Hidden = true
	return c
}

var registry = map[string]Resource{
	"devices": {
		Name:  "devices",
		Title: "Devices",
		Columns: []grid.Column{
			idColumn(),
			text("name", "Name", 180),
			text("imei", "IMEI", 170),
			text("model", "Model", 120),
			text("status", "Status", 100),
			text("group", "Group", 120),
			withRenderer(number("battery", "Battery", 90), percent),
			text("firmware", "Firmware", 100),
			date("lastSeen", "Last seen"),
			actions(),
		},
		Search:   []string{"name", "imei", "model"},
		Required: []string{"name", "imei"},
	},
	"vehicles": {
		Name:  "vehicles",
		Title: "Vehicles",
		Columns: []grid.Column{
			idColumn(),
			text("plate", "Plate", 110),
			text("make", "Make", 110),
			text("model", "Model", 110),
			number("year", "Year", 80),
			text("vin", "VIN", 180),
			text("driver", "Driver", 150),
			number("odometer", "Odometer (km)", 130),
			text("status", "Status", 100),
			actions(),
		},
		Search:   []string{"plate", "vin", "make", "model", "driver"},
		Required: []string{"plate", "vin"},
	},
	"drivers": {
		Name:  "drivers",
		Title: "Drivers",
		Columns: []grid.Column{
			idColumn(),
			text("name", "Name", 170),
			text("licenseNumber", "License", 130),
			text("phone", "Phone", 130),
			text("email", "Email", 200),
			text("vehicle", "Vehicle", 110),
			flag("active", "Active"),
			date("hiredAt", "Hired"),
			actions(),
		},
		Search:   []string{"name", "licenseNumber", "email", "phone"},
		Required: []string{"name", "licenseNumber"},
	},
	"accounts": {
		Name:  "accounts",
		Title: "Accounts",
		Columns: []grid.Column{
			idColumn(),
			text("company", "Company", 200),
			text("contact", "Contact", 160),
			text("email", "Email", 200),
			text("plan", "Plan", 100),
			number("devices", "Devices", 90),
			text("status", "Status", 100),
			date("createdAt", "Created"),
			actions(),
		},
		Search:   []string{"company", "contact", "email"},
		Required: []string{"company", "email"},
	},
	"groups": {
		Name:  "groups",
		Title: "Groups",
		Columns: []grid.Column{
			idColumn(),
			text("name", "Name", 180),
			hidden(text("description", "Description", 260)),
			text("account", "Account", 180),
			number("devices", "Devices", 90),
			date("createdAt", "Created"),
			actions(),
		},
		Search:   []string{"name", "description", "account"},
		Required: []string{"name"},
	},
	"sims": {
		Name:  "sims",
		Title: "SIM profiles",
		Columns: []grid.Column{
			idColumn(),
			text("iccid", "ICCID", 200),
			text("msisdn", "MSISDN", 140),
			text("carrier", "Carrier", 120),
			text("status", "Status", 100),
			number("dataUsedMb", "Data (MB)", 100),
			text("device", "Device", 150),
			date("activatedAt", "Activated"),
			actions(),
		},
		Search:   []string{"iccid", "msisdn", "carrier", "device"},
		Required: []string{"iccid"},
	},
	"alerts": {
		Name:  "alerts",
		Title: "Alerts",
		Columns: []grid.Column{
			idColumn(),
			text("type", "Type", 140),
			text("severity", "Severity", 100),
			text("device", "Device", 150),
			text("message", "Message", 260),
			flag("acknowledged", "Ack"),
			date("raisedAt", "Raised"),
			actions(),
		},
		Search:   []string{"type", "device", "message"},
		Required: []string{"type", "device"},
	},
	"reports": {
		Name:  "reports",
		Title: "Reports",
		Columns: []grid.Column{
			idColumn(),
			text("name", "Name", 200),
			text("kind", "Kind", 120),
			text("schedule", "Schedule", 110),
			text("owner", "Owner", 150),
			text("format", "Format", 90),
			date("lastRun", "Last run"),
			actions(),
		},
		Search:   []string{"name", "kind", "owner"},
		Required: []string{"name", "kind"},
	},
}

// Names lists the registered resources alphabetically.
func Names() []string {
	out := make([]string, 0, len(registry))
	for n := range registry {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// All returns every resource ordered by name.
func All() []Resource {
	names := Names()
	out := make([]Resource, len(names))
	for i, n := range names {
		out[i] = Get(n)
	}
	return out
}

// Get returns the resource named name, or the zero Resource.
func Get(name string) Resource {
	r := registry[name]
	r.Columns = append([]grid.Column(nil), r.Columns...)
	return r
}

// Lookup resolves a resource name case-insensitively.
func Lookup(name string) (Resource, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	if _, ok := registry[n]; !ok {
		return Resource{}, fmt.Errorf("unknown resource %q (expected one of %s)", name, strings.Join(Names(), ", "))
	}
	return Get(n), nil
}
