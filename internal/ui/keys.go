package ui

// Action is what a key does in the grid's normal mode.
type Action string

const (
	ActionNone         Action = ""
	ActionColumnLeft   Action = "column_left"
	ActionColumnRight  Action = "column_right"
	ActionSort         Action = "sort"
	ActionFilter       Action = "filter"
	ActionCondition    Action = "condition"
	ActionSearch       Action = "search"
	ActionNextPage     Action = "next_page"
	ActionPrevPage     Action = "prev_page"
	ActionFirstPage    Action = "first_page"
	ActionLastPage     Action = "last_page"
	ActionGoToPage     Action = "goto_page"
	ActionPageSize     Action = "page_size"
	ActionHideColumn   Action = "hide_column"
	ActionColumns      Action = "columns"
	ActionResetColumns Action = "reset_columns"
	ActionPin          Action = "pin"
	ActionMoveLeft     Action = "move_left"
	ActionMoveRight    Action = "move_right"
	ActionShrink       Action = "shrink"
	ActionGrow         Action = "grow"
	ActionToggleRow    Action = "toggle_row"
	ActionToggleAll    Action = "toggle_all"
	ActionChips        Action = "chips"
	ActionClearFilters Action = "clear_filters"
	ActionDetail       Action = "detail"
	ActionExport       Action = "export"
	ActionImport       Action = "import"
	ActionReload       Action = "reload"
	ActionHelp         Action = "help"
	ActionQuit         Action = "quit"
)

// KeyBindings maps key strings to actions. Cursor movement (up/down, j/k,
// home/end) belongs to the table and is not listed here.
var KeyBindings = map[string]Action{
	"left":   ActionColumnLeft,
	"h":      ActionColumnLeft,
	"right":  ActionColumnRight,
	"l":      ActionColumnRight,
	"s":      ActionSort,
	"f":      ActionFilter,
	"c":      ActionCondition,
	"/":      ActionSearch,
	"]":      ActionNextPage,
	"pgdown": ActionNextPage,
	"[":      ActionPrevPage,
	"pgup":   ActionPrevPage,
	"{":      ActionFirstPage,
	"}":      ActionLastPage,
	":":      ActionGoToPage,
	"z":      ActionPageSize,
	"v":      ActionHideColumn,
	"o":      ActionColumns,
	"R":      ActionResetColumns,
	"p":      ActionPin,
	"<":      ActionMoveLeft,
	">":      ActionMoveRight,
	"-":      ActionShrink,
	"+":      ActionGrow,
	"=":      ActionGrow,
	"space":  ActionToggleRow,
	"x":      ActionToggleRow,
	"X":      ActionToggleAll,
	"tab":    ActionChips,
	"C":      ActionClearFilters,
	"enter":  ActionDetail,
	"E":      ActionExport,
	"I":      ActionImport,
	"r":      ActionReload,
	"?":      ActionHelp,
	"f1":     ActionHelp,
	"q":      ActionQuit,
	"ctrl+c": ActionQuit,
}

type helpEntry struct {
	keys string
	desc string
}

// helpEntries is the help overlay content, in display order.
var helpEntries = []helpEntry{
	{"↑/↓ j/k", "move row"},
	{"←/→ h/l", "focus column"},
	{"s", "sort focused column (asc, desc, off)"},
	{"f", "value filter popover"},
	{"c", "condition filter (tab cycles operator)"},
	{"/", "search"},
	{"[ ] { }", "previous, next, first, last page"},
	{":", "go to page"},
	{"z", "next page size"},
	{"v / o / R", "hide column, column list, reset columns"},
	{"p", "pin column left, right, none"},
	{"< >", "move column"},
	{"- +", "narrow or widen column"},
	{"space / X", "select row, select page"},
	{"tab", "focus filter chips"},
	{"C", "clear all filters"},
	{"enter", "row details"},
	{"E / I", "export, import"},
	{"r", "reload"},
	{"q", "quit"},
}

func actionFor(k string) Action {
	return KeyBindings[k]
}
