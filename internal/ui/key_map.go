package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	up           key.Binding
	down         key.Binding
	prevPage     key.Binding
	nextPage     key.Binding
	tab          key.Binding
	toggle       key.Binding
	selectAll    key.Binding
	clear        key.Binding
	start        key.Binding
	stop         key.Binding
	edit         key.Binding
	remove       key.Binding
	bulkStart    key.Binding
	bulkDelete   key.Binding
	add          key.Binding
	batch        key.Binding
	convert      key.Binding
	log          key.Binding
	play         key.Binding
	folder       key.Binding
	window       key.Binding
	refresh      key.Binding
	showTerminal key.Binding
	submit       key.Binding
	next         key.Binding
	back         key.Binding
	yes          key.Binding
	no           key.Binding
	help         key.Binding
	quit         key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:           key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:         key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		prevPage:     key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "prev page")),
		nextPage:     key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "next page")),
		tab:          key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "list/done")),
		toggle:       key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "select")),
		selectAll:    key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "select page")),
		clear:        key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "clear selection")),
		start:        key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "download")),
		stop:         key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "stop")),
		edit:         key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit")),
		remove:       key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
		bulkStart:    key.NewBinding(key.WithKeys("S"), key.WithHelp("S", "download selected")),
		bulkDelete:   key.NewBinding(key.WithKeys("D"), key.WithHelp("D", "delete selected")),
		add:          key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new download")),
		batch:        key.NewBinding(key.WithKeys("N"), key.WithHelp("N", "batch download")),
		convert:      key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "convert to audio")),
		log:          key.NewBinding(key.WithKeys("L"), key.WithHelp("L", "show log")),
		play:         key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "play on phone")),
		folder:       key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "open folder")),
		window:       key.NewBinding(key.WithKeys("w"), key.WithHelp("w", "show window")),
		refresh:      key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		showTerminal: key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "toggle logs")),
		submit:       key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "save")),
		next:         key.NewBinding(key.WithKeys("tab", "shift+tab"), key.WithHelp("tab", "next field")),
		back:         key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		yes:          key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "yes")),
		no:           key.NewBinding(key.WithKeys("n", "esc"), key.WithHelp("n", "no")),
		help:         key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more")),
		quit:         key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.tab, k.toggle, k.start, k.add, k.help, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.prevPage, k.nextPage, k.tab, k.refresh},
		{k.toggle, k.selectAll, k.clear, k.bulkStart, k.bulkDelete},
		{k.start, k.stop, k.edit, k.remove, k.convert, k.log},
		{k.add, k.batch, k.play, k.folder, k.window, k.showTerminal},
		{k.help, k.quit},
	}
}
