package domain

import "sort"

// SettingType is the value type of a configuration key.
type SettingType string

const (
	SettingString   SettingType = "string"
	SettingInt      SettingType = "int"
	SettingBool     SettingType = "bool"
	SettingDuration SettingType = "duration"
)

// Setting describes one user-settable configuration key.
type Setting struct {
	Key         string
	Type        SettingType
	Description string
}

var knownSettings = []Setting{
	{"portal_url", SettingString, "ArcGIS Online or Enterprise portal URL"},
	{"item_id", SettingString, "default feature layer item ID"},
	{"credential_mode", SettingString, "ambient or app-registered"},
	{"client_id", SettingString, "OAuth application client ID"},
	{"desktop_env", SettingString, "desktop GIS environment directory holding a .env file"},
	{"output_dir", SettingString, "directory receiving archives and extracted files"},
	{"data_dir", SettingString, "directory holding the token cache and message log"},
	{"export.timeout", SettingDuration, "maximum wait for an export job"},
	{"export.poll_interval", SettingDuration, "delay between export status polls"},
	{"export.keep_remote", SettingBool, "keep the temporary export item on the portal"},
	{"oauth.callback_port_start", SettingInt, "first local port tried for the sign-in callback"},
	{"oauth.callback_port_end", SettingInt, "last local port tried for the sign-in callback"},
	{"oauth.callback_timeout", SettingDuration, "maximum wait for the browser sign-in"},
	{"log.file", SettingString, "diagnostic log file"},
	{"log.max_size_mb", SettingInt, "log size before rotation"},
	{"log.max_backups", SettingInt, "rotated log files kept"},
	{"log.max_age_days", SettingInt, "days rotated log files are kept"},
}

// KnownSettings returns the settable keys sorted by key.
func KnownSettings() []Setting {
	out := append([]Setting(nil), knownSettings...)
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// LookupSetting returns the setting for key.
func LookupSetting(key string) (Setting, bool) {
	for _, s := range knownSettings {
		if s.Key == key {
			return s, true
		}
	}
	return Setting{}, false
}
