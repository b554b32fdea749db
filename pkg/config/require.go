package config

import "log"

func MustNonEmpty(value, envName string) {
	if value == "" {
		log.Fatalf("missing required env %s", envName)
	}
}

func MustNonEmptyBytes(value []byte, envName string) {
	if len(value) == 0 {
		log.Fatalf("missing required env %s", envName)
	}
}

// MustAllOrNone fails when only part of a group of related envs is set,
// e.g. a Razorpay key id without its secret.
func MustAllOrNone(envs map[string]string) {
	set := 0
	for _, v := range envs {
		if v != "" {
			set++
		}
	}
	if set == 0 || set == len(envs) {
		return
	}
	for name, v := range envs {
		if v == "" {
			log.Fatalf("missing required env %s", name)
		}
	}
}
