package schema

// ContourCell is one geohash of a token contour. Position keeps the ring order.
type ContourCell struct {
	ID              uint64  `gorm:"column:id;primaryKey;autoIncrement"`
	TokenID         string  `gorm:"column:token_id;not null;type:text;uniqueIndex:idx_contour_cells_key,priority:1"`
	ContractAddress string  `gorm:"column:contract_address;not null;type:text;uniqueIndex:idx_contour_cells_key,priority:2"`
	Geohash         string  `gorm:"column:geohash;not null;type:text;uniqueIndex:idx_contour_cells_key,priority:3;index:idx_contour_cells_geohash"`
	Position        int     `gorm:"column:position;not null;default:0"`
	Level           *string `gorm:"column:level;type:text"`
	TokenType       *string `gorm:"column:token_type;type:text"`
}

func (ContourCell) TableName() string {
	return "contour_cells"
}
