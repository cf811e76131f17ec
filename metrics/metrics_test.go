package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/opensap/hdb-go/internal/protocol"
)

type fakeStatter struct {
	stats protocol.Stats
}

func (f fakeStatter) Stats() protocol.Stats { return f.stats }

func TestSessionCollectorExportsCurrentStats(t *testing.T) {
	s := fakeStatter{stats: protocol.Stats{
		OpenStatements: 2,
		OpenResultsets: 1,
		BytesRead:      1024,
		BytesWritten:   256,
		RequestsSent:   5,
	}}
	c := NewSessionCollector(s, "mydb")

	expected := `
		# HELP go_hdb_session_open_statements The number of open prepared statements.
		# TYPE go_hdb_session_open_statements gauge
		go_hdb_session_open_statements{db_name="mydb"} 2
		# HELP go_hdb_session_open_resultsets The number of open result sets.
		# TYPE go_hdb_session_open_resultsets gauge
		go_hdb_session_open_resultsets{db_name="mydb"} 1
		# HELP go_hdb_session_bytes_read Total bytes read from the session's connection.
		# TYPE go_hdb_session_bytes_read counter
		go_hdb_session_bytes_read{db_name="mydb"} 1024
		# HELP go_hdb_session_bytes_written Total bytes written to the session's connection.
		# TYPE go_hdb_session_bytes_written counter
		go_hdb_session_bytes_written{db_name="mydb"} 256
		# HELP go_hdb_session_requests_sent Total request messages sent over the session's lifetime.
		# TYPE go_hdb_session_requests_sent counter
		go_hdb_session_requests_sent{db_name="mydb"} 5
	`
	require.NoError(t, testutil.CollectAndCompare(c, strings.NewReader(expected)))
}

// statPointer lets Collect observe a Stats snapshot that changes between
// calls, the way a live *protocol.Session's counters do.
type statPointer struct {
	stats *protocol.Stats
}

func (p *statPointer) Stats() protocol.Stats { return *p.stats }

func TestSessionCollectorReflectsStatsChangesOnEachCollect(t *testing.T) {
	stats := &protocol.Stats{RequestsSent: 1}
	c := NewSessionCollector(&statPointer{stats: stats}, "mydb")
	require.Equal(t, 1, testutil.CollectAndCount(c, "go_hdb_session_requests_sent"))

	stats.RequestsSent = 7
	require.NoError(t, testutil.CollectAndCompare(c, strings.NewReader(`
		# HELP go_hdb_session_requests_sent Total request messages sent over the session's lifetime.
		# TYPE go_hdb_session_requests_sent counter
		go_hdb_session_requests_sent{db_name="mydb"} 7
	`), "go_hdb_session_requests_sent"))
}
