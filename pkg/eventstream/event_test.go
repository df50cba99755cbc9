package eventstream_test

import (
	"encoding/json"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/tomes/pkg/eventstream"
	"github.com/papercomputeco/tomes/pkg/material"
)

var _ = Describe("Event", func() {
	It("marshals MaterialSyncedEvent with expected top-level keys", func() {
		event := eventstream.NewMaterialSyncedEvent(
			"m1",
			eventstream.EventSource{Kind: material.KindLink, ID: "l1"},
			"material", 12, 2, 1500*time.Millisecond,
		)

		payload, err := json.Marshal(event)
		Expect(err).NotTo(HaveOccurred())

		var got map[string]any
		Expect(json.Unmarshal(payload, &got)).To(Succeed())

		Expect(got).To(HaveKeyWithValue("schema_version", BeNumerically("==", eventstream.SchemaVersionV1)))
		Expect(got).To(HaveKeyWithValue("event_type", eventstream.EventTypeMaterialSynced))
		Expect(got).To(HaveKeyWithValue("material_id", "m1"))
		Expect(got).To(HaveKeyWithValue("chunks", BeNumerically("==", 12)))
		Expect(got).To(HaveKeyWithValue("duration_ms", BeNumerically("==", 1500)))
		Expect(got).To(HaveKey("emitted_at"))
		Expect(got["source"]).To(HaveKeyWithValue("kind", "link"))
	})

	It("assigns a fresh event id", func() {
		a := eventstream.NewMaterialSyncedEvent("m1", eventstream.EventSource{Kind: material.KindText}, "material", 1, 1, 0)
		b := eventstream.NewMaterialSyncedEvent("m1", eventstream.EventSource{Kind: material.KindText}, "material", 1, 1, 0)
		Expect(strings.HasPrefix(a.EventID, "evt_")).To(BeTrue())
		Expect(a.EventID).NotTo(Equal(b.EventID))
	})

	It("provides ErrNilEvent for nil payload validation", func() {
		Expect(eventstream.ErrNilEvent).To(MatchError("nil event"))
	})
})
