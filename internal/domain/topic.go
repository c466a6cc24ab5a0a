package domain

import "fmt"

type TopicKind string

const (
	TopicRoom     TopicKind = "room"
	TopicBuilding TopicKind = "building"
	TopicUser     TopicKind = "user"
)

// Topic names a real-time channel such as room:101.
type Topic struct {
	Kind TopicKind
	ID   int64
}

func RoomTopic(id int64) Topic     { return Topic{Kind: TopicRoom, ID: id} }
func BuildingTopic(id int64) Topic { return Topic{Kind: TopicBuilding, ID: id} }
func UserTopic(id int64) Topic     { return Topic{Kind: TopicUser, ID: id} }

func (t Topic) String() string {
	return fmt.Sprintf("%s:%d", t.Kind, t.ID)
}
