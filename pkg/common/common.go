package common

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"
)

const (
	ENABLED  = "enabled"
	DISABLED = "disabled"

	ACTIVE   = "active"
	INACTIVE = "inactive"
	OFFLINE  = "offline"
)

var snowflakeNode *snowflake.Node

func init() {
	var err error
	snowflakeNode, err = snowflake.NewNode(rand.Int63n(1024))
	if err != nil {
		panic(err)
	}
}

// UUIDint64 returns a snowflake-based int64 identifier.
func UUIDint64() int64 {
	return snowflakeNode.Generate().Int64()
}

// NewTransactionID generates a transaction identifier in the
// "trans_" + 10 hex chars form used on the wire.
func NewTransactionID() string {
	hex := strings.ReplaceAll(uuid.New().String(), "-", "")
	return fmt.Sprintf("trans_%s", hex[:10])
}

func IsEmptyOrNA(v string) bool {
	v = strings.TrimSpace(v)
	return v == "" || strings.EqualFold(v, "n/a")
}

// FmtTime formats a timestamp the way the API exposes it.
func FmtTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
