package models

import (
	"time"
)

// City is reference data shared by all tenants. The seeded set is closed:
// the seven emirates.
type City struct {
	CityId    int       `gorm:"column:city_id;primaryKey;autoIncrement" json:"city_id"`
	CityName  string    `gorm:"size:50;uniqueIndex;not null" json:"city_name"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

type CityArea struct {
	AreaId    int       `gorm:"column:area_id;primaryKey;autoIncrement" json:"area_id"`
	CityId    int       `gorm:"column:city_id;uniqueIndex:idx_city_areas_city_name,priority:1;not null" json:"city_id"`
	AreaName  string    `gorm:"size:100;uniqueIndex:idx_city_areas_city_name,priority:2;not null" json:"area_name"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}
