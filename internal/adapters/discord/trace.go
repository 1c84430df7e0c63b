package discord

import (
	"log"
	"time"
)

// arriba de esto el comando se loguea como lento
const slowStep = 3 * time.Second

// step mide un bloque: defer step("cmd:x")()
func step(label string) func() {
	start := time.Now()
	return func() {
		d := time.Since(start)
		if d >= slowStep {
			log.Printf("[trace] %s = %s (lento)", label, d)
			return
		}
		log.Printf("[trace] %s = %s", label, d)
	}
}
