package models

// Preferences is the process-wide preference record.
type Preferences struct {
	Local           string `json:"local" toml:"local"`
	PromptTone      bool   `json:"promptTone" toml:"prompt_tone"`
	Proxy           string `json:"proxy" toml:"proxy"`
	UseProxy        bool   `json:"useProxy" toml:"use_proxy"`
	ShowTerminal    bool   `json:"showTerminal" toml:"show_terminal"`
	OpenInNewWindow bool   `json:"openInNewWindow" toml:"open_in_new_window"`
}

// PreferencesUpdate is a partial update. A nil field is absent.
type PreferencesUpdate struct {
	Local           *string `json:"local,omitempty"`
	PromptTone      *bool   `json:"promptTone,omitempty"`
	Proxy           *string `json:"proxy,omitempty"`
	UseProxy        *bool   `json:"useProxy,omitempty"`
	ShowTerminal    *bool   `json:"showTerminal,omitempty"`
	OpenInNewWindow *bool   `json:"openInNewWindow,omitempty"`
}

// Merge applies u on top of p and returns the result.
//
// Local only changes when the update carries a non-empty value, so an empty string
// cannot clear the download directory. Every other field changes whenever it is
// present, including false and "".
func (p Preferences) Merge(u PreferencesUpdate) Preferences {
	if u.Local != nil && *u.Local != "" {
		p.Local = *u.Local
	}
	if u.PromptTone != nil {
		p.PromptTone = *u.PromptTone
	}
	if u.Proxy != nil {
		p.Proxy = *u.Proxy
	}
	if u.UseProxy != nil {
		p.UseProxy = *u.UseProxy
	}
	if u.ShowTerminal != nil {
		p.ShowTerminal = *u.ShowTerminal
	}
	if u.OpenInNewWindow != nil {
		p.OpenInNewWindow = *u.OpenInNewWindow
	}
	return p
}
