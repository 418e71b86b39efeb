package services

import (
	"go.mongodb.org/mongo-driver/bson"

	"github.com/AnshRaj112/mindmesh-backend/internal/models"
	"github.com/AnshRaj112/mindmesh-backend/internal/store"
)

// Indexes backs every live and one-shot query the services issue.
func Indexes() []store.Index {
	return []store.Index{
		{
			Collection: models.CollectionMessages,
			Name:       "idx_group_created_ord",
			Keys:       bson.D{{Key: models.FieldGroupID, Value: 1}, {Key: models.FieldCreatedAt, Value: -1}, {Key: store.FieldInsertOrder, Value: -1}},
		},
		{
			Collection: models.CollectionNotifications,
			Name:       "idx_user_read_created",
			Keys:       bson.D{{Key: models.FieldUserID, Value: 1}, {Key: models.FieldRead, Value: 1}, {Key: models.FieldCreatedAt, Value: -1}},
		},
		{
			// Not unique: public groups keep an empty code. Uniqueness is
			// enforced when codes are generated.
			Collection: models.CollectionGroups,
			Name:       "idx_join_code",
			Keys:       bson.D{{Key: models.FieldJoinCode, Value: 1}},
			Sparse:     true,
		},
		{
			Collection: models.CollectionGroups,
			Name:       "idx_created",
			Keys:       bson.D{{Key: models.FieldCreatedAt, Value: -1}},
		},
		{
			Collection: models.CollectionIdeas,
			Name:       "idx_category_created",
			Keys:       bson.D{{Key: models.FieldCategory, Value: 1}, {Key: models.FieldCreatedAt, Value: -1}},
		},
		{
			Collection: models.CollectionNotes,
			Name:       "idx_user_updated",
			Keys:       bson.D{{Key: models.FieldUserID, Value: 1}, {Key: models.FieldUpdatedAt, Value: -1}},
		},
		{
			Collection: models.CollectionMoodboards,
			Name:       "idx_created",
			Keys:       bson.D{{Key: models.FieldCreatedAt, Value: -1}},
		},
	}
}
