package cashu

// Error code ranges extending the mint's CashuErrCode space (see cashu.go)
// to the saga, blind-auth and conditional-token components: 40000s for
// sagas, 50000s for auth, 60000s for CTF.
const (
	SagaConflictErrCode       CashuErrCode = 40001
	CompensationFailedErrCode CashuErrCode = 40002
	RecoveryAmbiguousErrCode  CashuErrCode = 40003

	AuthRequiredErrCode          CashuErrCode = 50001
	ClearAuthFailedErrCode       CashuErrCode = 50002
	BlindAuthInsufficientErrCode CashuErrCode = 50003
	AuthTokenAlreadyUsedErrCode  CashuErrCode = 50004

	InvalidConditionIdErrCode           CashuErrCode = 60001
	OverlappingOutcomeCollectionsErrCode CashuErrCode = 60002
	IncompletePartitionErrCode           CashuErrCode = 60003
	OracleThresholdNotMetErrCode         CashuErrCode = 60004
	ConflictingOracleAttestationsErrCode CashuErrCode = 60005
)

var (
	// SagaError
	SagaConflictErr       = Error{Detail: "saga was updated concurrently", Code: SagaConflictErrCode}
	CompensationFailedErr = Error{Detail: "saga compensation failed", Code: CompensationFailedErrCode}
	RecoveryAmbiguousErr  = Error{Detail: "saga outcome could not be determined during recovery", Code: RecoveryAmbiguousErrCode}

	// AuthError
	AuthRequiredErr          = Error{Detail: "clear-auth or blind-auth required for this endpoint", Code: AuthRequiredErrCode}
	ClearAuthFailedErr       = Error{Detail: "clear-auth token validation failed", Code: ClearAuthFailedErrCode}
	BlindAuthInsufficientErr = Error{Detail: "blind-auth token missing or invalid", Code: BlindAuthInsufficientErrCode}
	AuthTokenAlreadyUsedErr  = Error{Detail: "blind-auth token already redeemed", Code: AuthTokenAlreadyUsedErrCode}

	// CtfError
	InvalidConditionIdErr            = Error{Detail: "condition id does not match registered condition", Code: InvalidConditionIdErrCode}
	OverlappingOutcomeCollectionsErr = Error{Detail: "outcome collections in partition are not disjoint", Code: OverlappingOutcomeCollectionsErrCode}
	IncompletePartitionErr           = Error{Detail: "partition does not cover all outcomes", Code: IncompletePartitionErrCode}
	OracleThresholdNotMetErr         = Error{Detail: "fewer than k oracle signatures provided", Code: OracleThresholdNotMetErrCode}
	ConflictingOracleAttestationsErr = Error{Detail: "oracle signatures attest to conflicting outcomes", Code: ConflictingOracleAttestationsErrCode}
)
