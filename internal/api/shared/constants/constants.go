package constants

const (
	MAX_PAGE_SIZE             = 1000
	DEFAULT_PAGE_SIZE         = 20
	MAX_GEOHASHES_PER_REQUEST = 100
	MAX_IDS_PER_REQUEST       = 100
	MAX_FILTER_VALUES         = 50
	MAX_FIELD_LENGTH          = 256
)
