package memkv

import (
	"testing"

	"github.com/listsync/listsync/server/internal/kv"
	"github.com/listsync/listsync/server/internal/kv/kvtest"
)

func TestMemKV_Compliance(t *testing.T) {
	kvtest.Run(t, func(t *testing.T) kv.KV { return New() })
}
