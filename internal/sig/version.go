package sig

// Version constants for the signature schema and library.
const (
	// SchemaVersion is the signature IR schema version.
	SchemaVersion = "1"

	// LibraryVersion is the kwonly library version.
	LibraryVersion = "0.1.0"
)
