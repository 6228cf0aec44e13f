package station

import "petrolstation/internal/fuel"

// DispenserView is the observable state of one dispenser.
type DispenserView struct {
	ID   int       `json:"id"`
	Name string    `json:"name"`
	Tag  fuel.Kind `json:"tag"`
	Busy bool      `json:"busy"`
}

// Snapshot is a point-in-time view of the station for observers. Fields are
// read one by one, so it may mix states a moment apart.
type Snapshot struct {
	Hour       int               `json:"hour"`
	Capacity   int               `json:"capacity"`
	Levels     map[fuel.Kind]int `json:"levels"`
	Dispensers []DispenserView   `json:"dispensers"`
	Served     int               `json:"served"`
	Waiting    int               `json:"waiting"`
	Tanker     string            `json:"tanker"`
	Trips      int64             `json:"trips"`
	Paying     bool              `json:"paying"`
}

// Snapshot reads the current station state.
func (st *Station) Snapshot() Snapshot {
	s := Snapshot{
		Hour:     st.clock.Hour(),
		Capacity: st.inventory.Capacity(),
		Levels:   st.inventory.Levels(),
		Served:   st.stats.Served(),
		Waiting:  st.queue.Len(),
		Tanker:   st.tanker.State(),
		Trips:    st.tanker.Trips(),
		Paying:   st.register.Busy(),
	}
	for _, d := range st.dispensers {
		s.Dispensers = append(s.Dispensers, DispenserView{ID: d.ID, Name: d.Name, Tag: d.Tag, Busy: d.Busy()})
	}
	return s
}
