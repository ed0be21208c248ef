package domain

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

const (
	DefaultIcon = "collection"
)

// EventChannelPrefix is the redis pub/sub channel prefix for entity
// lifecycle events; the full channel is the prefix plus the type name.
const EventChannelPrefix = "entity:"

// OrderableColumns are the entity columns a query may sort on. Ordering
// never touches attribute rows, so the plan cost stays independent of how
// many attributes an entity has.
var OrderableColumns = map[string]string{
	"createdAt":  "created_at",
	"created_at": "created_at",
	"updatedAt":  "updated_at",
	"updated_at": "updated_at",
}
