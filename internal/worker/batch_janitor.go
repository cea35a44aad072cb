package worker

import (
	"log"
	"time"

	"github.com/tradejournal/internal/repository"
)

// BatchJanitor marks import batches stuck in processing as failed.
// A batch can be abandoned mid-run when the server restarts during an
// import; content hashing makes re-uploading the same statement safe.
type BatchJanitor struct {
	batchRepo *repository.ImportBatchRepository
	maxAge    time.Duration
	interval  time.Duration
	stopChan  chan struct{}
}

// NewBatchJanitor creates a new stale-batch janitor
func NewBatchJanitor(batchRepo *repository.ImportBatchRepository, maxAge time.Duration) *BatchJanitor {
	if maxAge <= 0 {
		maxAge = 30 * time.Minute
	}
	return &BatchJanitor{
		batchRepo: batchRepo,
		maxAge:    maxAge,
		interval:  time.Minute,
		stopChan:  make(chan struct{}),
	}
}

// Start begins the monitoring loop
func (w *BatchJanitor) Start() {
	log.Printf("Batch janitor started, max batch age: %v", w.maxAge)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.sweep()
		case <-w.stopChan:
			log.Println("Batch janitor stopped")
			return
		}
	}
}

// Stop stops the monitoring loop
func (w *BatchJanitor) Stop() {
	close(w.stopChan)
}

func (w *BatchJanitor) sweep() {
	stale, err := w.batchRepo.FindStaleProcessing(w.maxAge)
	if err != nil {
		log.Printf("Batch janitor sweep failed: %v", err)
		return
	}

	for i := range stale {
		batch := &stale[i]
		if err := w.batchRepo.MarkFailed(batch, "import abandoned, please retry the upload"); err != nil {
			log.Printf("Failed to mark batch %s failed: %v", batch.PublicID, err)
			continue
		}
		log.Printf("Marked stale import batch %s as failed", batch.PublicID)
	}
}
