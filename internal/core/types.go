package core

import "context"

// Record is a document: field name to scalar or nested value.
type Record map[string]any

// Field names shared by the external and internal record representations.
const (
	// ExternalIDField is the identifier field exposed to callers.
	ExternalIDField = "ID"
	// IDField is the storage-native identifier field.
	IDField = "_id"
	// VersionField is the storage-native revision field. Never surfaced externally.
	VersionField = "__v"
)

// Verb is a CRUD operation name.
type Verb string

const (
	VerbCreate Verb = "CREATE"
	VerbRead   Verb = "READ"
	VerbUpdate Verb = "UPDATE"
	VerbDelete Verb = "DELETE"
)

// Verbs lists the CRUD verbs in registration order.
var Verbs = []Verb{VerbRead, VerbCreate, VerbUpdate, VerbDelete}

// Entity identifies a business entity type within the host.
type Entity struct {
	Name  string // Unique identifier: "Instruments"
	Group string // Logical area: "Market", "Trading", "Research"
	Label string // Display name
}

// Request is the per-request view the engine needs from the host framework.
type Request interface {
	// Context carries cancellation and the session/user labels.
	Context() context.Context
	// Data is the request payload. Never nil.
	Data() Record
	// Query holds the query-bounds map ($top, $skip, ...).
	Query() map[string]string
	// Reject returns an error that aborts the operation with status and message.
	Reject(status int, message string) error
}

// FindOptions bounds a filtered scan. Skip is applied before Limit; zero
// values mean "no bound".
type FindOptions struct {
	Skip  int
	Limit int
}

// UpdateOptions controls FindByIDAndUpdate.
type UpdateOptions struct {
	New      bool // return the post-update document
	Validate bool // run schema validation on the update
}

// Model is a document-store collection.
//
// Lookups return (nil, nil) when nothing matches. Filters are structural
// equality on field/value pairs; a nil value matches a missing or null field.
// Returned records are in internal form.
type Model interface {
	FindByID(ctx context.Context, id string) (Record, error)
	FindOne(ctx context.Context, filter Record) (Record, error)
	Find(ctx context.Context, filter Record, opts FindOptions) ([]Record, error)
	Create(ctx context.Context, doc Record) (Record, error)
	FindByIDAndUpdate(ctx context.Context, id string, set Record, opts UpdateOptions) (Record, error)
	FindByIDAndDelete(ctx context.Context, id string) (Record, error)
}

// Store hands out collections and manages the backend connection.
type Store interface {
	Model(collection string) Model
	// EnsureUnique creates a unique index over fields in collection.
	EnsureUnique(ctx context.Context, collection string, fields []string) error
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// EntityDefinition contains everything needed to serve one entity.
type EntityDefinition struct {
	Entity          Entity
	Collection      string   // Storage collection name
	Unique          []string // Field(s) forming the uniqueness key-set
	ConflictMessage string   // Message returned when the key-set already exists
	Required        []string // Fields validated on create and update
	Timestamps      bool     // Maintain createdAt/updatedAt
}
