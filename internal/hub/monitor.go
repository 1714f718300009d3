package hub

import (
	"sort"
	"time"

	"github.com/priyesh-kurmi/eventhive-sub000/internal/fanout"
	"github.com/priyesh-kurmi/eventhive-sub000/internal/model"
)

// MonitorService provides methods to gather hub statistics
type MonitorService struct {
	hub *Hub
}

// NewMonitorService creates a new monitor service
func NewMonitorService(hub *Hub) *MonitorService {
	return &MonitorService{hub: hub}
}

// GetStats gathers and returns all hub statistics
func (ms *MonitorService) GetStats() model.MonitorResponse {
	rooms, clients := ms.snapshot()

	users := make(map[string]struct{})
	for _, c := range clients {
		users[c.UserID] = struct{}{}
	}

	status := "healthy"
	if len(clients) == 0 {
		status = "idle"
	}

	return model.MonitorResponse{
		Status: status,
		Connections: model.ConnectionStats{
			TotalConnected: len(clients),
			DistinctUsers:  len(users),
		},
		Rooms:   rooms,
		Clients: clients,
	}
}

// snapshot walks every shard once and collects room and client info.
func (ms *MonitorService) snapshot() (model.RoomStats, []model.ClientInfo) {
	stats := model.RoomStats{
		RoomDetails: make([]model.RoomInfo, 0),
	}
	clients := make([]model.ClientInfo, 0)

	for _, bucket := range ms.hub.shards {
		bucket.RLock()
		for key, r := range bucket.rooms {
			members := make(map[string]struct{}, len(r.clients))
			for _, c := range r.clients {
				members[c.identity.ID] = struct{}{}
				clients = append(clients, model.ClientInfo{
					ClientID:    c.ID,
					UserID:      c.identity.ID,
					Room:        key,
					ConnectedAt: c.connectedAt.Format(time.RFC3339),
				})
			}

			memberIDs := make([]string, 0, len(members))
			for id := range members {
				memberIDs = append(memberIDs, id)
			}
			sort.Strings(memberIDs)

			stats.RoomDetails = append(stats.RoomDetails, model.RoomInfo{
				RoomKey:       key,
				OnlineMembers: len(memberIDs),
				Sockets:       len(r.clients),
				MemberIDs:     memberIDs,
			})
			stats.TotalRooms++
			if rk, err := fanout.ParseRoom(key); err == nil && rk.Kind == fanout.RoomEvent {
				stats.EventRooms++
			} else {
				stats.DirectRooms++
			}
		}
		bucket.RUnlock()
	}

	sort.Slice(stats.RoomDetails, func(i, j int) bool {
		return stats.RoomDetails[i].RoomKey < stats.RoomDetails[j].RoomKey
	})
	return stats, clients
}
