package core

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// Held messages; the From header is omitted on purpose
var testMessages = map[string][]string{
	"1243439251.12345": {
		"X-TMDA-Recipient: testuser@example.com",
		"Return-Path: <return.path.1@example.com>",
		"Message-ID: <message.id.12345@example.com>",
		"Date: Fri, 17 Nov 2017 13:20:16 +0100",
		"To: Test User <testuser@example.com>",
		"Subject: Test message number one!",
		"",
		"This is a test message.",
	},
	"1303349951.12346": {
		"X-TMDA-Recipient: testuser@example.com",
		"Return-Path: <prvs=BATV-tag=return.path.2@example.com>",
		"Message-ID: <message.id.12346@example.com>",
		"Date: Fri, 17 Nov 2017 13:20:16 +0100",
		`To: =?utf-8?Q?"T=C3=A9st"_User?= <testuser@example.com>`,
		`Subject: =?utf-8?Q?Test message "num=C3=A9ro" TWO (UTF-8)!?=`,
		"Content-Type: text/plain; charset=utf-8",
		"Content-Transfer-Encoding: 8bit",
		"",
		"This is another (UTF-8 encoded) test message (H\xc3\xa9! H\xc3\xa9! \xc3\x87a passe ou \xc3\xa7a casse!).",
	},
	"1303433207.12347": {
		"X-TMDA-Recipient: testuser-extension@example.com",
		"Return-Path: <SRS0=SRS-tag=example.com=return.path.3@example.org>",
		"Message-ID: <message.id.12347@example.com>",
		"Date: Fri, 17 Nov 2017 13:20:16 +0100",
		`To: =?ISO-8859-1?Q?"T=E9st"_User?= <testuser@example.com>`,
		`Subject: =?ISO-8859-1?Q?Test message "num=E9ro" last (ISO-8859-1).?=`,
		"Content-Type: text/plain; charset=ISO-8859-1",
		"Content-Transfer-Encoding: 8bit",
		"",
		"This is the last",
		"(ISO-8859-1 encoded)",
		"test message",
		"(H\xe9! H\xe9! \xc7a passe ou \xe7a casse!)",
	},
}

var expectedSenders = []string{
	"return.path.1@example.com",
	"return.path.2@example.com",
	"return.path.3@example.com",
}

var testIdentity = Identity{
	Recipient: "testuser@example.com",
	Username:  "testuser",
	Hostname:  "example.com",
}

type event struct {
	kind string
	arg  string
}

// recorder collects every side effect in the order it happened
type recorder struct {
	mu          sync.Mutex
	events      []event
	fileAppends [][2]string
	dbInserts   []dbInsert
	shown       []string
	released    []string
}

type dbInsert struct {
	statement string
	params    map[string]string
}

func (r *recorder) add(kind, arg string) {
	r.events = append(r.events, event{kind, arg})
}

type mockMailQueue struct {
	rec  *recorder
	msgs map[string][]byte
}

func newMockMailQueue(rec *recorder) *mockMailQueue {
	q := &mockMailQueue{rec: rec, msgs: make(map[string][]byte)}
	for id, lines := range testMessages {
		q.msgs[id] = []byte(strings.Join(lines, "\r\n"))
	}
	return q
}

func (q *mockMailQueue) ListIDs(ctx context.Context) ([]string, error) {
	ids := make([]string, 0, len(q.msgs))
	for id := range q.msgs {
		ids = append(ids, id)
	}
	// Map order is random; the service must sort
	sort.Sort(sort.Reverse(sort.StringSlice(ids)))
	return ids, nil
}

func (q *mockMailQueue) Exists(ctx context.Context, id string) (bool, error) {
	_, ok := q.msgs[id]
	return ok, nil
}

func (q *mockMailQueue) Fetch(ctx context.Context, id string) ([]byte, error) {
	raw, ok := q.msgs[id]
	if !ok {
		return nil, ErrMessageNotFound
	}
	return raw, nil
}

func (q *mockMailQueue) Delete(ctx context.Context, id string) error {
	q.rec.add("queue-delete", id)
	delete(q.msgs, id)
	return nil
}

type recordingFileSink struct{ rec *recorder }

func (s recordingFileSink) Append(line, path string) error {
	s.rec.fileAppends = append(s.rec.fileAppends, [2]string{line, path})
	s.rec.add("file", path)
	return nil
}

type recordingDBSink struct{ rec *recorder }

func (s recordingDBSink) Insert(ctx context.Context, statement string, params map[string]string) error {
	s.rec.dbInserts = append(s.rec.dbInserts, dbInsert{statement, params})
	s.rec.add("db", statement)
	return nil
}

type recordingDisplay struct{ rec *recorder }

func (d recordingDisplay) Render(ctx context.Context, msg *PendingMessage) error {
	d.rec.shown = append(d.rec.shown, msg.ID)
	return nil
}

type recordingReleaser struct{ rec *recorder }

func (r recordingReleaser) Release(ctx context.Context, msg *PendingMessage) error {
	r.rec.released = append(r.rec.released, msg.ID)
	r.rec.add("release", msg.ID)
	return nil
}

// memoryCacheStore keeps the cache between runs of one test
type memoryCacheStore struct{ ids []string }

func (m *memoryCacheStore) Load(ctx context.Context) ([]string, error) {
	return append([]string(nil), m.ids...), nil
}

func (m *memoryCacheStore) Save(ctx context.Context, ids []string) error {
	m.ids = append([]string(nil), ids...)
	return nil
}

func allSinksSettings() PendingSettings {
	return PendingSettings{
		Whitelist: SinkTarget{File: "whitelist_file", Statement: "whitelist_db_stmt"},
		Blacklist: SinkTarget{File: "blacklist_file", Statement: "blacklist_db_stmt"},
		Release:   SinkTarget{File: "release_file", Statement: "release_db_stmt"},
		Delete:    SinkTarget{File: "delete_file", Statement: "delete_db_stmt"},
		CacheLen:  5000,
		Identity:  testIdentity,
	}
}
