package config

import (
	"io/fs"
	"time"
)

// -----------------------------------------------------------------------------
// Build Information
// -----------------------------------------------------------------------------

// Build variables are injected via -ldflags.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// UserAgent identifies the HTTP client when fetching remote exports.
var UserAgent = "Go-VCFMerge/" + Version

// -----------------------------------------------------------------------------
// Application Constants
// -----------------------------------------------------------------------------

const (
	AppName        = "Go VCF Merge"
	AppID          = "com.github.tartampluch.go-vcfmerge"
	ConfigFileName = "vcfmerge"
	LogFileName    = "vcfmerge.log"
)

// -----------------------------------------------------------------------------
// Exit Codes
// -----------------------------------------------------------------------------

const (
	ExitCodeSuccess = 0
	ExitCodeError   = 1
)

// -----------------------------------------------------------------------------
// System & File Permissions
// -----------------------------------------------------------------------------

const (
	// FilePermUserRW represents -rw------- (Read/Write for owner only).
	// Used for the log file.
	FilePermUserRW fs.FileMode = 0600

	// FilePermDefault represents -rw-r--r-- for generated vCard/ICS output.
	FilePermDefault fs.FileMode = 0644

	// DirPermDefault represents drwxr-xr-x for the split-output directory.
	DirPermDefault fs.FileMode = 0755
)

// -----------------------------------------------------------------------------
// CLI Flags & Descriptions
// -----------------------------------------------------------------------------

const (
	FlagConfig       = "config"
	FlagDebug        = "debug"
	FlagDescConfig   = "config file (default is ./vcfmerge.yaml)"
	FlagDescDebug    = "enable debug logging"
	CmdValidate      = "validate"
	CmdValidateShort = "Validate the configuration file and exit"
	CmdRootUse       = "go-vcfmerge"
	CmdRootShort     = "Normalize, merge and deduplicate vCard contact exports"
	CmdRootLong      = `go-vcfmerge reconciles divergent address-book exports (e.g. a legacy
export and a cloud-sync export) into one canonical .vcf file.

Contacts are parsed leniently, structured data leaked into NOTE fields is
promoted back into proper properties, the two inputs are merged field by
field under configurable precedence rules, and duplicate identities are
collapsed into the most complete record.`
	MsgVersionOutput = "%s version %s (%s/%s)\n"
)

// -----------------------------------------------------------------------------
// Configuration Keys & Defaults
// -----------------------------------------------------------------------------

const (
	KeySource           = "source"
	KeyUpdate           = "update"
	KeyOutput           = "output"
	KeyVCFVersion       = "vcf_version"
	KeyMinDigits        = "min_digits"
	KeyAllowIntl        = "allow_international"
	KeyDefaultRegion    = "default_region"
	KeyPreferUpdateFor  = "prefer_update_for"
	KeyPreferSourceFor  = "prefer_source_for"
	KeyDedupe           = "dedupe"
	KeyBackup           = "backup"
	KeySplitOutput      = "split_output"
	KeySplitOutputDir   = "split_output_dir"
	KeyBirthdayCalendar = "birthday_calendar"
	KeyWebUser          = "web_user"
	KeyWebPass          = "web_pass"
)

const (
	DefaultVCFVersion   = "3.0"
	DefaultMinDigits    = 7
	DefaultOutput       = "contacts_final.vcf"
	DefaultSplitDir     = "contacts_split"
	BackupSuffix        = "_backup"
	BackupTimeLayout    = "20060102_150405"
	MaxSafeFilenameLen  = 80
	FallbackContactName = "contact"
)

// DefaultPreferUpdateFor and DefaultPreferSourceFor mirror the precedence the
// tool shipped with: the update export usually carries fresher reachability
// data, while names and birthdays from the curated source are trusted more.
var (
	DefaultPreferUpdateFor = []string{"EMAIL", "TEL", "ADR", "ORG", "NOTE"}
	DefaultPreferSourceFor = []string{"N", "FN", "BDAY"}
)

// -----------------------------------------------------------------------------
// vCard Field Names
// -----------------------------------------------------------------------------

const (
	FieldBegin     = "BEGIN"
	FieldEnd       = "END"
	FieldVersion   = "VERSION"
	FieldFN        = "FN"
	FieldN         = "N"
	FieldBday      = "BDAY"
	FieldTel       = "TEL"
	FieldEmail     = "EMAIL"
	FieldAdr       = "ADR"
	FieldOrg       = "ORG"
	FieldTitle     = "TITLE"
	FieldNote      = "NOTE"
	FieldABLabel   = "X-ABLABEL"
	CardSentinel   = "VCARD"
	VCFVersion21   = "2.1"
	VCFVersion30   = "3.0"
	ParamTypeKey   = "TYPE"
	GroupSeparator = "."
)

// MergeableFields lists every field name accepted in the precedence
// configuration lists.
var MergeableFields = []string{
	FieldN, FieldFN, FieldBday, FieldTel, FieldEmail,
	FieldAdr, FieldOrg, FieldTitle, FieldNote,
}

// -----------------------------------------------------------------------------
// Phone Type Tags
// -----------------------------------------------------------------------------

const (
	TypeCell  = "CELL"
	TypeWork  = "WORK"
	TypeHome  = "HOME"
	TypeFax   = "FAX"
	TypeVoice = "VOICE"
	TypePref  = "PREF"
)

// -----------------------------------------------------------------------------
// Date Normalization
// -----------------------------------------------------------------------------

const (
	// SentinelYear marks a birthday whose year is unknown.
	SentinelYear = 1900

	DateFormatISO = "2006-01-02"
)

// -----------------------------------------------------------------------------
// iCalendar Export
// -----------------------------------------------------------------------------

const (
	ICalVersion   = "2.0"
	ICalProdid    = "-//Go VCF Merge//Engine//EN"
	ICalCalName   = "Contact Birthdays"
	ICalScale     = "GREGORIAN"
	ICalDomain    = "govcfmerge"
	UIDSalt       = "go-vcfmerge-v1-"
	UIDHashLength = 16
	FormatUID     = "%s@%s"

	PropUID        = "UID"
	PropSummary    = "SUMMARY"
	PropDTStart    = "DTSTART"
	PropDTStamp    = "DTSTAMP"
	PropRRule      = "RRULE"
	PropVersion    = "VERSION"
	PropProdid     = "PRODID"
	PropXWRCalName = "X-WR-CALNAME"
	PropCalScale   = "CALSCALE"

	RRuleYearly       = "FREQ=YEARLY"
	FormatBdaySummary = "Birthday: %s"

	// StubVCalendar is the minimal valid iCalendar object emitted when no
	// contact has a usable birthday, so clients never see an invalid feed.
	StubVCalendar = "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:" + ICalProdid + "\r\nEND:VCALENDAR\r\n"
)

// -----------------------------------------------------------------------------
// Network & Timeouts
// -----------------------------------------------------------------------------

const (
	HTTPTimeout         = 30 * time.Second
	MaxHTTPResponseSize = 256 * 1024 * 1024 // 256MB
	SchemeHTTP          = "http"
	SchemeHTTPS         = "https"
	HeaderUserAgent     = "User-Agent"
)

// -----------------------------------------------------------------------------
// Logging Keys
// -----------------------------------------------------------------------------

const (
	LogKeyComponent = "component"
	LogKeyError     = "error"
	LogKeyFile      = "file"
	LogKeyURL       = "url"
	LogKeyStatus    = "status"
	LogKeyLine      = "line"
	LogKeyValue     = "value"
	LogKeyName      = "name"
	LogKeyKey       = "key"
	LogKeyField     = "field"
	LogKeyCount     = "count"
	LogKeyDuration  = "duration_ms"
	LogKeyStats     = "stats"
	LogKeySource    = "source"
	LogKeyUpdate    = "update"
	LogKeyMerged    = "merged"
	LogKeyCollapsed = "collapsed"
	LogKeyWarnings  = "warnings"
	LogKeyVersion   = "version"
	LogKeyGoVer     = "go_version"
	LogKeyOS        = "os"
	LogKeyArch      = "arch"
	LogKeyPID       = "pid"
	LogKeyApp       = "app"
	LogKeyBuild     = "build"
	LogKeyEnv       = "env"

	CompMain     = "main"
	CompEngine   = "engine"
	CompFetcher  = "fetcher"
	CompParser   = "parser"
	CompWriter   = "writer"
	CompCalendar = "calendar"
)

// -----------------------------------------------------------------------------
// Error Messages (Technical/Logs)
// -----------------------------------------------------------------------------

const (
	ErrConfigLoad       = "failed to load configuration"
	ErrConfigInvalid    = "invalid configuration"
	ErrSourceRequired   = "configuration error: source file is required"
	ErrOutputRequired   = "configuration error: output file is required"
	ErrPrecedenceField  = "configuration error: unknown field name in precedence list"
	ErrPrecedenceClash  = "configuration error: field listed in both prefer_update_for and prefer_source_for"
	ErrNoVCards         = "no BEGIN:VCARD found in input"
	ErrInputDecode      = "input is not decodable text"
	ErrInvalidURL       = "invalid URL structure"
	ErrProtocol         = "unsupported protocol scheme (http/https only)"
	ErrFetcherMissing   = "internal error: network fetcher is not initialized"
	ErrOpenInput        = "failed to open input"
	ErrWriteOutput      = "failed to write output"
	ErrCreateBackup     = "failed to create backup"
	ErrEncodeCard       = "failed to encode vCard"
	ErrEncodeCalendar   = "failed to encode birthday calendar"
	ErrLogFile          = "failed to open log file"
	ErrAppFailed        = "application failed unexpectedly"
	ErrRequestCreate    = "failed to create request"
	ErrNetworkFetch     = "network error during fetch"
	ErrUnexpectedStatus = "server returned unexpected status"

	MsgLogWarning = "%s: %s: %v\n"
)

// -----------------------------------------------------------------------------
// Log Messages
// -----------------------------------------------------------------------------

const (
	MsgAppStarting      = "Starting application"
	MsgAppStop          = "Run completed"
	MsgRunStarted       = "Merge run started"
	MsgReadingSource    = "Reading source vCards"
	MsgReadingUpdate    = "Reading update vCards"
	MsgNoUpdate         = "No update file configured, processing source only"
	MsgMergedContact    = "Merged update contact into source"
	MsgAddedContact     = "Added new contact from update"
	MsgCollapsedGroup   = "Collapsed duplicate contacts"
	MsgSkippedLine      = "Skipping malformed property line"
	MsgUnknownProperty  = "Ignoring unrecognized property"
	MsgUnterminatedCard = "Discarding unterminated vCard at end of input"
	MsgDroppedDate      = "Dropping unparseable birthday"
	MsgDroppedPhone     = "Phone failed validation, kept in NOTE"
	MsgDroppedEmail     = "Email failed validation, kept in NOTE"
	MsgBackupCreated    = "Backup created"
	MsgOutputWritten    = "Output file written"
	MsgSplitWritten     = "Split contact files written"
	MsgCalendarWritten  = "Birthday calendar written"
	MsgRunSuccess       = "Merge run successful"
	MsgDownloadStart    = "Initiating vCard download"
	MsgDownloading      = "vCards downloading"
	MsgLatin1Fallback   = "Input is not valid UTF-8, decoding as Latin-1"
)
