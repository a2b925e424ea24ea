package service

// ContextKey is a type for context key values.
type ContextKey int

// Consts for context keys
const (
	ContextError ContextKey = iota
)

// Keys of Service.params
const (
	ParamUsername = "username"
	ParamPassword = "password"
)

// Topics published through the message broker.
const (
	TopicEventsUpdated = "vnintegration.events.updated"
	TopicTicketsSaved  = "vnintegration.tickets.saved"
)

// Names of the scheduled tasks.
const (
	TaskEvents  = "events"
	TaskTickets = "tickets"
)

// File names and prefixes in the output directory.
const (
	LoginResponseFile      = "response_login.xml"
	RepertoirePrefix       = "response_getrepertoire"
	RawTicketsPrefix       = "response_tickets_event"
	EventTicketsPrefix     = "event_tickets"
	defaultRetryAttempts   = 3
	defaultRetryDelayMilli = 500
)

// Root and collection elements of remote responses. Only the collection directly
// below the root is decoded as an array; records keep their own fields as sent.
var (
	eventRoot         = "repertoires"
	eventCollection   = "repertoire"
	ticketRoot        = "synchronize"
	ticketCollections = []string{"ticket", "pass", "element"}
)

// collectionPaths returns the WithArrays paths of `names` below `root`.
func collectionPaths(root string, names ...string) []string {
	paths := make([]string, 0, len(names))
	for _, name := range names {
		paths = append(paths, root+"/"+name)
	}
	return paths
}
