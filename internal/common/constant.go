package common

// AccessTokenHeaderName is the gRPC metadata key used to carry the agent
// session token on outbound requests.
const AccessTokenHeaderName = "access_token"

// BackupVersion is written into every exported backup.
const BackupVersion = "1.0"
