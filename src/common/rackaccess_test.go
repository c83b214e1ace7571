package common

import (
	"arr/src/lib"
	"arr/src/utils"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
)

type fakeBridge struct {
	spawnErrs  []error
	aliveAfter map[int]bool
	nextPid    int
	spawned    []int
	terminated []int
}

func (b *fakeBridge) Spawn(localPort int, targetHost string, targetPort int, logPath string) (int, error) {
	if len(b.spawnErrs) > 0 {
		err := b.spawnErrs[0]
		b.spawnErrs = b.spawnErrs[1:]
		if err != nil {
			return 0, err
		}
	}
	b.nextPid++
	b.spawned = append(b.spawned, b.nextPid)
	return b.nextPid, nil
}

func (b *fakeBridge) IsAlive(pid int) bool {
	alive, ok := b.aliveAfter[pid]
	if !ok {
		return true
	}
	return alive
}

func (b *fakeBridge) Terminate(pid int) error {
	b.terminated = append(b.terminated, pid)
	return nil
}

func fastRetryTimings(t *testing.T) {
	t.Helper()
	oldWait, oldDelay := accessInitWait, accessRetryBaseDelay
	accessInitWait = 0
	accessRetryBaseDelay = time.Millisecond
	t.Cleanup(func() {
		accessInitWait = oldWait
		accessRetryBaseDelay = oldDelay
	})
}

func TestStartBridgeWithRetry(t *testing.T) {
	alwaysFree := func(port int) bool { return true }

	t.Run("Should succeed on the first attempt", func(t *testing.T) {
		fastRetryTimings(t)
		alloc := lib.CreatePortAllocator(6080, 6089, alwaysFree)
		bridge := &fakeBridge{}

		port, pid, err := startBridgeWithRetry(alloc, bridge, "10.0.0.5", 5901, "/tmp/test.log")
		assert.Nil(t, err)
		assert.Equal(t, 6080, port)
		assert.Equal(t, 1, pid)
		assert.Equal(t, 1, alloc.InUse())
	})

	t.Run("Should retry after a failed spawn and release the port", func(t *testing.T) {
		fastRetryTimings(t)
		alloc := lib.CreatePortAllocator(6080, 6089, alwaysFree)
		bridge := &fakeBridge{
			spawnErrs: []error{errors.New("exec: websockify: not found")},
		}

		port, pid, err := startBridgeWithRetry(alloc, bridge, "10.0.0.5", 5901, "/tmp/test.log")
		assert.Nil(t, err)
		assert.Greater(t, pid, 0)
		assert.Equal(t, 6080, port)
		// First attempt's reservation came back before the retry
		assert.Equal(t, 1, alloc.InUse())
	})

	t.Run("Should terminate a process that dies during startup", func(t *testing.T) {
		fastRetryTimings(t)
		alloc := lib.CreatePortAllocator(6080, 6089, alwaysFree)
		bridge := &fakeBridge{
			aliveAfter: map[int]bool{1: false},
		}

		_, pid, err := startBridgeWithRetry(alloc, bridge, "10.0.0.5", 5901, "/tmp/test.log")
		assert.Nil(t, err)
		assert.Equal(t, 2, pid)
		assert.Contains(t, bridge.terminated, 1)
		assert.Equal(t, 1, alloc.InUse())
	})

	t.Run("Should give up after exhausting the retry budget", func(t *testing.T) {
		fastRetryTimings(t)
		alloc := lib.CreatePortAllocator(6080, 6089, alwaysFree)
		bridge := &fakeBridge{
			spawnErrs: []error{
				errors.New("spawn failed"),
				errors.New("spawn failed"),
				errors.New("spawn failed"),
			},
		}

		_, _, err := startBridgeWithRetry(alloc, bridge, "10.0.0.5", 5901, "/tmp/test.log")
		assert.NotNil(t, err)
		assert.Equal(t, 0, alloc.InUse())
	})

	t.Run("Should surface port exhaustion without retrying", func(t *testing.T) {
		fastRetryTimings(t)
		alloc := lib.CreatePortAllocator(6080, 6080, func(port int) bool { return false })
		bridge := &fakeBridge{}

		_, _, err := startBridgeWithRetry(alloc, bridge, "10.0.0.5", 5901, "/tmp/test.log")
		assert.ErrorIs(t, err, lib.ErrNoPortsAvailable)
	})
}

func fakeSessionInfra(t *testing.T, bridge *fakeBridge, alloc *lib.PortAllocator) {
	t.Helper()
	prevBridge := lib.GetBridge()
	prevAlloc := lib.GetPortAllocator()
	lib.NewBridge(bridge)
	lib.NewPortAllocator(alloc)
	t.Cleanup(func() {
		lib.NewBridge(prevBridge)
		lib.NewPortAllocator(prevAlloc)
	})
}

func TestStartRackAccess(t *testing.T) {
	now := time.Now()
	bookingColumns := []string{"id", "user_id", "rack_id", "start_time", "end_time", "token_cost", "status", "session_is_active"}
	rackColumns := []string{"id", "name", "token_cost_per_hour", "vnc_host", "vnc_port"}

	t.Run("Should tear the bridge down when another start wins the session", func(t *testing.T) {
		fastRetryTimings(t)
		bridge := &fakeBridge{}
		alloc := lib.CreatePortAllocator(6080, 6089, func(port int) bool { return true })
		fakeSessionInfra(t, bridge, alloc)

		mock := newMockDB(t)
		mock.ExpectQuery(`SELECT \* FROM "bookings"`).
			WillReturnRows(sqlmock.NewRows(bookingColumns).
				AddRow(7, 1, 3, now.Add(-time.Hour), now.Add(time.Hour), 200, "confirmed", false))
		mock.ExpectQuery(`SELECT \* FROM "racks"`).
			WillReturnRows(sqlmock.NewRows(rackColumns).
				AddRow(3, "Rack A", 100, "10.0.0.5", 5901))
		// A concurrent start (or a cancel) got there first
		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE "bookings" SET`).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()

		_, err := StartRackAccess(7, 1, now)

		var apiErr *utils.APIError
		assert.True(t, errors.As(err, &apiErr))
		assert.Equal(t, 409, apiErr.Status)
		assert.Contains(t, bridge.terminated, 1)
		assert.Equal(t, 0, alloc.InUse())
		assert.Nil(t, mock.ExpectationsWereMet())
	})
}

func TestStopRackAccess(t *testing.T) {
	now := time.Now()
	bookingColumns := []string{"id", "user_id", "rack_id", "start_time", "end_time", "token_cost", "status", "session_is_active"}

	t.Run("Should succeed as a no-op when no session is active", func(t *testing.T) {
		bridge := &fakeBridge{}
		fakeSessionInfra(t, bridge, lib.CreatePortAllocator(6080, 6089, func(port int) bool { return true }))

		mock := newMockDB(t)
		mock.ExpectQuery(`SELECT \* FROM "bookings"`).
			WillReturnRows(sqlmock.NewRows(bookingColumns).
				AddRow(7, 1, 3, now.Add(-time.Hour), now.Add(time.Hour), 200, "confirmed", false))

		err := StopRackAccess(7, 1, false)

		assert.Nil(t, err)
		assert.Empty(t, bridge.terminated)
		assert.Nil(t, mock.ExpectationsWereMet())
	})
}
