package config

import "time"

// Args holds CLI arguments parsed by go-arg. Pointer fields stay nil when the
// flag is absent so the YAML file and defaults can fill them in.
type Args struct {
	URL          string         `arg:"positional,required" help:"track, album or playlist URL"`
	LogLevel     string         `arg:"--log-level" help:"DEBUG, INFO, WARNING, ERROR or CRITICAL [default: INFO]"`
	Load         string         `arg:"--load" help:"log in with a stored credentials file"`
	Save         string         `arg:"--save" help:"save credentials to this file after logging in"`
	Email        string         `arg:"--email" help:"account email or username"`
	Password     string         `arg:"--password" help:"account password, prompted for when omitted on a terminal"`
	Template     string         `arg:"-t,--template" help:"filename template [default: {artist} - {title}]"`
	Output       string         `arg:"-o,--output" help:"output directory template [default: .]"`
	Quality      string         `arg:"--quality" help:"BEST or WORST [default: BEST]"`
	Config       string         `arg:"--config" help:"YAML file with default options"`
	Bridge       string         `arg:"--bridge" help:"session bridge URL [default: http://127.0.0.1:24879]"`
	Workers      *int           `arg:"--workers" help:"concurrent downloads for albums and playlists [default: 16]"`
	Attempts     *int           `arg:"--attempts" help:"attempts per track [default: 5]"`
	RetryDelay   *time.Duration `arg:"--retry-delay" help:"delay before the first retry, doubled on every further retry [default: 0s]"`
	Archive      string         `arg:"--archive" help:"SQLite archive of downloaded tracks; archived tracks are skipped"`
	M3U          string         `arg:"--m3u" help:"write an M3U8 playlist of downloaded tracks"`
	GCSBucket    string         `arg:"--gcs-bucket" help:"upload downloaded files to this Cloud Storage bucket"`
	GCSPrefix    string         `arg:"--gcs-prefix" help:"object name prefix for uploads"`
	FailExitCode *int           `arg:"--fail-exit-code" help:"exit code when any track failed [default: 0]"`
	NoProgress   bool           `arg:"--no-progress" help:"do not draw the progress bar"`
}

// Description provides the help header for go-arg
func (Args) Description() string {
	return "Downloads tracks, albums and playlists through a librespot session bridge.\n" +
		"Templates take {title} {artist} {albumartist} {album} {tracknumber} {date} {copyright} {discnumber}" +
		" with optional [[fill]align][width] specs, e.g. {tracknumber:0>2}."
}

// BuildVersion is set at build time with -ldflags
var BuildVersion = "dev"

// Version implements go-arg's Versioned
func (Args) Version() string {
	return "librespot-dl " + BuildVersion
}
