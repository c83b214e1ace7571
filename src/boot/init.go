package boot

import (
	"arr/src/common"
	"arr/src/db"
	"arr/src/lib"
	"arr/src/models"
	"log"
	"time"

	"gorm.io/gorm"
)

func InitDb() *gorm.DB {
	db := db.GetDb()

	err := db.AutoMigrate(
		&models.User{},
		&models.Rack{},
		&models.Booking{},
		&models.Waitlist{},
		&models.TokenPack{},
		&models.Transaction{},
	)
	if err != nil {
		log.Fatalf("error migration: %s", err.Error())
	}

	return db
}

// InitScheduler registers the recurring sweeps: expired bookings move to
// completed and their sessions get torn down. Both jobs are idempotent, so
// overlapping runs are harmless.
func InitScheduler() {
	sched, err := lib.GetScheduler()
	if err != nil {
		log.Println("An error has occurred. Check logs for info")
		return
	}

	jobID, err := lib.CreateCronJob(func() {
		if err := common.UpdateExpiredBookings(time.Now()); err != nil {
			log.Printf("Error running booking expiry sweep: %s\n", err.Error())
		}
	}, time.Minute)
	if err != nil {
		log.Printf("Error scheduling booking expiry sweep: %s\n", err.Error())
		return
	}
	log.Printf("Scheduled booking expiry sweep: %s\n", *jobID)

	jobID, err = lib.CreateCronJob(func() {
		if err := common.CleanupExpiredSessions(time.Now()); err != nil {
			log.Printf("Error running session cleanup sweep: %s\n", err.Error())
		}
	}, time.Minute)
	if err != nil {
		log.Printf("Error scheduling session cleanup sweep: %s\n", err.Error())
		return
	}
	log.Printf("Scheduled session cleanup sweep: %s\n", *jobID)

	sched.Start()
	log.Println("Jobs in queue:", len(sched.Jobs()))
}

func StopScheduler() {
	sched, err := lib.GetScheduler()
	if err != nil {
		return
	}
	if err := sched.Shutdown(); err != nil {
		log.Printf("Error shutting down scheduler: %s\n", err.Error())
	}
}
