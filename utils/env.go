// utils/env.go
package utils

import (
	"fmt"
	"os"
)

// requiredEnv is the fail-fast list checked at startup. Optional integrations
// (OAuth, Facebook, Resend) degrade gracefully and are not listed here.
var requiredEnv = []string{
	"DATABASE_URL",
	"MONGO_URI",
	"JWT_SECRET",
	"PAYMOB_API_KEY",
	"PAYMOB_HMAC_SECRET",
	"STORAGE_ACCESS_KEY_ID",
	"STORAGE_ACCESS_KEY_SECRET",
	"STORAGE_BUCKET_NAME",
	"STORAGE_ENDPOINT",
}

// ValidateEnv checks every required variable and reports all missing ones at
// once so a bad deploy fails on the first boot, not on the first request.
func ValidateEnv() error {
	var missing []string
	for _, key := range requiredEnv {
		if os.Getenv(key) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %v", missing)
	}
	return nil
}
