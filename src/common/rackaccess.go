package common

import (
	"arr/src/config"
	"arr/src/db"
	"arr/src/lib"
	"arr/src/models"
	"arr/src/types"
	"arr/src/utils"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"gorm.io/gorm"
)

// accessInitWait gives a freshly spawned bridge time to bind or crash
// before we trust it. accessRetryBaseDelay seeds the doubling backoff
// between spawn attempts. Tests shrink both.
var (
	accessInitWait       = 3 * time.Second
	accessRetryBaseDelay = time.Second
)

// startBridgeWithRetry spawns a bridge process for the rack console,
// retrying on a fresh port when the process dies during startup. Every
// failed attempt releases its port and reaps its process before the next
// one. The backoff doubles per attempt and never exceeds 8 seconds.
func startBridgeWithRetry(alloc *lib.PortAllocator, bridge lib.Bridge, targetHost string, targetPort int, logPath string) (localPort, pid int, err error) {
	for attempt := 0; attempt < config.ACCESS_START_MAX_RETRIES; attempt++ {
		if attempt > 0 {
			backoff := accessRetryBaseDelay << (attempt - 1)
			if backoff > 8*time.Second {
				backoff = 8 * time.Second
			}
			time.Sleep(backoff)
		}

		localPort, err = alloc.Acquire()
		if err != nil {
			return 0, 0, err
		}

		pid, err = bridge.Spawn(localPort, targetHost, targetPort, logPath)
		if err != nil {
			log.Printf("Bridge spawn attempt %d on port %d failed: %s\n", attempt+1, localPort, err.Error())
			alloc.Release(localPort)
			continue
		}

		time.Sleep(accessInitWait)
		if bridge.IsAlive(pid) {
			return localPort, pid, nil
		}

		log.Printf("Bridge process %d died during startup on port %d (attempt %d)\n", pid, localPort, attempt+1)
		if err := bridge.Terminate(pid); err != nil {
			log.Printf("Error terminating dead bridge process %d: %s\n", pid, err.Error())
		}
		alloc.Release(localPort)
	}
	return 0, 0, fmt.Errorf("bridge did not survive startup after %d attempts", config.ACCESS_START_MAX_RETRIES)
}

func sessionURL(port int, vncPassword string) string {
	domain := os.Getenv("VNC_DOMAIN_NAME")
	if domain == "" {
		domain = "acirackrentals.com"
	}
	accessURL := fmt.Sprintf("https://%s:%d/vnc.html", domain, port)
	if vncPassword != "" {
		accessURL = fmt.Sprintf("%s?password=%s", accessURL, url.QueryEscape(vncPassword))
	}
	return accessURL
}

// StartRackAccess brings up a NoVNC session for an in-progress booking.
// Calling it again while the session's process is alive returns the
// existing session instead of spawning a second bridge.
func StartRackAccess(bookingID, userID uint, now time.Time) (*models.AccessSession, error) {
	gdb := db.GetDb()

	var booking models.Booking
	if err := gdb.
		Model(&models.Booking{}).
		Preload("Rack").
		Where("id = ?", bookingID).
		First(&booking).
		Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NewAPIError(http.StatusNotFound, "Booking not found.")
		}
		return nil, err
	}
	if booking.UserID != userID {
		return nil, utils.NewAPIError(http.StatusForbidden, "You do not have permission to access this booking.")
	}
	if booking.Status != types.BOOKING_CONFIRMED {
		return nil, utils.NewAPIError(http.StatusBadRequest, "This booking is not active.")
	}
	if now.Before(booking.StartTime) || !now.Before(booking.EndTime) {
		return nil, utils.NewAPIError(http.StatusBadRequest, "Access is only available during your booked time slot.")
	}
	if booking.Rack == nil || booking.Rack.VNCConnection.Host == "" {
		return nil, utils.NewAPIError(http.StatusBadRequest, "This rack has no remote console configured.")
	}

	bridge := lib.GetBridge()
	alloc := lib.GetPortAllocator()

	if booking.Session.IsActive {
		if bridge.IsAlive(booking.Session.PID) {
			log.Printf("Session for booking [%d] already running on port %d\n", booking.ID, booking.Session.Port)
			return &booking.Session, nil
		}
		// Stale record from a crashed bridge or a restart. Reclaim and respawn
		log.Printf("Clearing stale session for booking [%d] (pid %d)\n", booking.ID, booking.Session.PID)
		alloc.Release(booking.Session.Port)
		if err := clearSession(gdb, booking.ID); err != nil {
			return nil, err
		}
	}

	logDir := os.Getenv("NOVNC_LOG_DIR")
	if logDir == "" {
		logDir = os.TempDir()
	}
	logPath := fmt.Sprintf("%s/novnc_booking_%d.log", logDir, booking.ID)

	localPort, pid, err := startBridgeWithRetry(alloc, bridge, booking.Rack.VNCConnection.Host, booking.Rack.VNCConnection.Port, logPath)
	if err != nil {
		if errors.Is(err, lib.ErrNoPortsAvailable) {
			return nil, utils.NewAPIError(http.StatusServiceUnavailable, "No available NoVNC ports. Please try again later.")
		}
		log.Printf("Error starting NoVNC bridge for booking [%d]: %s\n", booking.ID, err.Error())
		return nil, utils.NewAPIError(http.StatusInternalServerError, "Failed to start NoVNC server after multiple attempts.")
	}

	session := models.AccessSession{
		URL:       sessionURL(localPort, booking.Rack.VNCConnection.Password),
		Port:      localPort,
		PID:       pid,
		IsActive:  true,
		StartedAt: &now,
	}
	res := gdb.
		Model(&models.Booking{}).
		Where("id = ? AND status = ? AND session_is_active = ?", booking.ID, types.BOOKING_CONFIRMED, false).
		Updates(map[string]any{
			"session_url":        session.URL,
			"session_port":       session.Port,
			"session_pid":        session.PID,
			"session_is_active":  true,
			"session_started_at": session.StartedAt,
		})
	if res.Error != nil || res.RowsAffected == 0 {
		// The booking changed under us (cancelled, completed, or another
		// start won the race). Tear the bridge back down rather than leak it.
		if err := bridge.Terminate(pid); err != nil {
			log.Printf("Error terminating orphaned bridge process %d: %s\n", pid, err.Error())
		}
		alloc.Release(localPort)
		if res.Error != nil {
			return nil, res.Error
		}
		return nil, utils.NewAPIError(http.StatusConflict, "Booking status changed while starting the session.")
	}

	log.Printf("Started NoVNC session for booking [%d] on port %d (pid %d)\n", booking.ID, localPort, pid)
	return &session, nil
}

func clearSession(tx *gorm.DB, bookingID uint) error {
	return tx.
		Model(&models.Booking{}).
		Where("id = ?", bookingID).
		Updates(map[string]any{
			"session_url":        "",
			"session_port":       0,
			"session_pid":        0,
			"session_is_active":  false,
			"session_started_at": nil,
		}).
		Error
}

// StopRackAccess tears down a booking's NoVNC session. Process termination
// is best-effort: the port is released and the session record cleared even
// if the process is already gone.
func StopRackAccess(bookingID, userID uint, isAdmin bool) error {
	gdb := db.GetDb()

	var booking models.Booking
	query := gdb.Model(&models.Booking{}).Where("id = ?", bookingID)
	if !isAdmin {
		query = query.Where("user_id = ?", userID)
	}
	if err := query.First(&booking).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NewAPIError(http.StatusNotFound, "Booking not found.")
		}
		return err
	}
	if !booking.Session.IsActive {
		// Nothing running; stopping is a no-op rather than an error.
		return nil
	}

	bridge := lib.GetBridge()
	if err := bridge.Terminate(booking.Session.PID); err != nil {
		log.Printf("Error terminating bridge process %d for booking [%d]: %s\n", booking.Session.PID, booking.ID, err.Error())
	}
	lib.GetPortAllocator().Release(booking.Session.Port)

	if err := clearSession(gdb, booking.ID); err != nil {
		return err
	}
	log.Printf("Stopped NoVNC session for booking [%d]\n", booking.ID)
	return nil
}

// CleanupExpiredSessions force-stops sessions still marked active on
// bookings whose window has elapsed. Safe to re-run: stopped sessions are
// no longer selected.
func CleanupExpiredSessions(now time.Time) error {
	gdb := db.GetDb()
	var stale []models.Booking
	if err := gdb.
		Model(&models.Booking{}).
		Where("session_is_active = ? AND end_time < ?", true, now).
		Find(&stale).
		Error; err != nil {
		log.Printf("Error retrieving expired sessions: %s\n", err.Error())
		return err
	}

	bridge := lib.GetBridge()
	alloc := lib.GetPortAllocator()
	for _, booking := range stale {
		log.Printf("Cleaning up expired session for booking [%d] (port %d)\n", booking.ID, booking.Session.Port)
		if err := bridge.Terminate(booking.Session.PID); err != nil {
			log.Printf("Error terminating bridge process %d: %s\n", booking.Session.PID, err.Error())
		}
		alloc.Release(booking.Session.Port)
		if err := clearSession(gdb, booking.ID); err != nil {
			log.Printf("Error clearing session for booking [%d]: %s\n", booking.ID, err.Error())
		}
	}
	return nil
}
