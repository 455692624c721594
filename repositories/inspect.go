package repositories

import (
	"fmt"

	"github.com/mama165/sdk-go/database"
)

// InspectRow renders a stored history entry for the badger debug inspector.
func InspectRow(key string, val []byte) database.InspectRow {
	row := database.DefaultMapper(key, val)
	message, err := decodeMessage(val)
	if err != nil {
		row.Type = "INVALID"
		row.Detail = "Error: decode failed"
		return row
	}
	row.Type = "MESSAGE"
	row.Detail = fmt.Sprintf("[%s] %s: %s", message.Group, message.Sender, message.Body)
	return row
}
