package hashgen

import (
	"strings"
	"sync"
	"testing"
)

const urlSafeChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"

func TestNewBase64URL(t *testing.T) {
	gen := NewBase64URL()
	if gen == nil {
		t.Fatal("NewBase64URL() returned nil")
	}
}

func TestBase64URLGenerator_Generate(t *testing.T) {
	t.Run("generates hash of fixed length", func(t *testing.T) {
		gen := NewBase64URL()

		for i := 0; i < 100; i++ {
			hash, err := gen.Generate()
			if err != nil {
				t.Fatalf("Generate() unexpected error: %v", err)
			}

			if len(hash) != HashLength {
				t.Errorf("Generate() returned length %d, want %d", len(hash), HashLength)
			}
		}
	})

	t.Run("generates unique hashes", func(t *testing.T) {
		gen := NewBase64URL()
		seen := make(map[string]bool)

		// Generate 1000 hashes and ensure they're all unique
		for i := 0; i < 1000; i++ {
			hash, err := gen.Generate()
			if err != nil {
				t.Fatalf("Generate() unexpected error: %v", err)
			}

			if seen[hash] {
				t.Errorf("Generate() produced duplicate hash: %q", hash)
			}
			seen[hash] = true
		}

		if len(seen) != 1000 {
			t.Errorf("expected 1000 unique hashes, got %d", len(seen))
		}
	})

	t.Run("generates only URL-safe characters", func(t *testing.T) {
		gen := NewBase64URL()

		for i := 0; i < 200; i++ {
			hash, err := gen.Generate()
			if err != nil {
				t.Fatalf("Generate() unexpected error: %v", err)
			}

			for pos, char := range hash {
				if !strings.ContainsRune(urlSafeChars, char) {
					t.Errorf("Generate() produced invalid character %c at position %d in %q", char, pos, hash)
				}
			}
		}
	})

	t.Run("concurrent generation is safe", func(t *testing.T) {
		gen := NewBase64URL()
		const goroutines = 50
		const iterations = 100

		var wg sync.WaitGroup
		results := make(chan string, goroutines*iterations)
		errChan := make(chan error, goroutines*iterations)

		for i := 0; i < goroutines; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < iterations; j++ {
					hash, err := gen.Generate()
					if err != nil {
						errChan <- err
						return
					}
					results <- hash
				}
			}()
		}

		wg.Wait()
		close(results)
		close(errChan)

		for err := range errChan {
			t.Errorf("concurrent Generate() error: %v", err)
		}

		count := 0
		for hash := range results {
			if len(hash) != HashLength {
				t.Errorf("concurrent Generate() returned length %d, want %d", len(hash), HashLength)
			}
			count++
		}
		if count != goroutines*iterations {
			t.Errorf("expected %d hashes, got %d", goroutines*iterations, count)
		}
	})
}
