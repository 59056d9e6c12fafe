package mapper

import (
	"projecthub-be/internal/entity"
	"projecthub-be/internal/model"

	"gorm.io/datatypes"
)

type ActivityMapper struct{}

func NewActivityMapper() *ActivityMapper {
	return &ActivityMapper{}
}

func (m *ActivityMapper) ToEntity(a *model.Activity) *entity.Activity {
	if a == nil {
		return nil
	}
	return &entity.Activity{
		Id:         a.Id,
		EventType:  a.EventType,
		DocumentId: a.DocumentId,
		UserId:     a.UserId,
		Payload:    a.Payload,
		CreatedAt:  a.CreatedAt,
	}
}

func (m *ActivityMapper) ToModel(a *entity.Activity) *model.Activity {
	if a == nil {
		return nil
	}
	return &model.Activity{
		Id:         a.Id,
		EventType:  a.EventType,
		DocumentId: a.DocumentId,
		UserId:     a.UserId,
		Payload:    datatypes.JSONMap(a.Payload),
		CreatedAt:  a.CreatedAt,
	}
}

func (m *ActivityMapper) ToEntities(rows []*model.Activity) []*entity.Activity {
	entities := make([]*entity.Activity, len(rows))
	for i, a := range rows {
		entities[i] = m.ToEntity(a)
	}
	return entities
}
