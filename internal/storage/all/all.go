// Package all registers every storage backend. Blank-import it from main.
package all

import (
	_ "rulegen/internal/storage/mssql"
	_ "rulegen/internal/storage/postgres"
	_ "rulegen/internal/storage/sqlite"
)
