package dynamo

// DynamoDB attribute and index names used across the repos.
const (
	fieldUserID      = "user_id"
	fieldUsername    = "username"
	fieldPhoneNumber = "phone_number"
	fieldUpdatedAt   = "updated_at"
	fieldGuardOwner  = "owner_user_id" // on uniqueness guard items only

	fieldOwnerID     = "owner_id"
	fieldHashedCode  = "hashed_code"
	fieldExpiresAt   = "expires_at" // TTL attribute, Unix seconds
	fieldExpiresAtMs = "expires_at_ms"

	indexUsername    = "username-index"
	indexPhoneNumber = "phone_number-index"
)
