package redis

import (
	"strings"
)

var (
	App     = "ticketing"
	Env     = "dev" // dev|stg|prod
	Version = "v1"  // schema version for easy bust
)

// Key builds a namespaced cache key: <app>:<env>:<version>:<parts...>.
func Key(parts ...string) string {
	return strings.Join(append([]string{App, Env, Version}, parts...), ":")
}

// Catalog view keys. Admin writes invalidate these.

func EventsViewKey() string { return Key("views", "events") }

func TypesViewKey(eventID string) string { return Key("views", "types", eventID) }

func StagesViewKey(eventID, typeID string) string {
	return Key("views", "stages", eventID, typeID)
}
