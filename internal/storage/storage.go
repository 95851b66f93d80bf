package storage

import (
	"sort"
	"sync"

	"github.com/lehigh-university-libraries/shelfscan/internal/models"
)

// ScanStore keeps the scans run by this process, keyed by scan ID
type ScanStore struct {
	scans map[string]*models.ScanResult
	mu    sync.RWMutex
}

func New() *ScanStore {
	return &ScanStore{
		scans: make(map[string]*models.ScanResult),
	}
}

func (s *ScanStore) Get(scanID string) (*models.ScanResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	scan, exists := s.scans[scanID]
	return scan, exists
}

func (s *ScanStore) Set(scan *models.ScanResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scans[scan.ScanID] = scan
}

// List returns every stored scan, newest first
func (s *ScanStore) List() []*models.ScanResult {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*models.ScanResult, 0, len(s.scans))
	for _, v := range s.scans {
		result = append(result, v)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result
}

func (s *ScanStore) Delete(scanID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.scans, scanID)
}
