package oracle

import "time"

const (
	defaultEnabled       = true
	defaultKeystoreFile  = "oracle.keystore.json"
	defaultPasswordEnv   = "CONFSTAKE_ORACLE_PASSWORD"
	defaultWorkers       = 2
	defaultQueueSize     = 256
	defaultCallbackDelay = 0 * time.Millisecond
	defaultThreshold     = 1
)
