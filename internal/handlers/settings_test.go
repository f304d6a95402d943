package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	v1 "github.com/vmops/snapfleet/api/v1"
	"github.com/vmops/snapfleet/internal/models"
)

var _ = Describe("Settings Handlers", func() {
	var testEnv *env

	BeforeEach(func() {
		testEnv = newEnv()
	})

	put := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPut, "/settings", bytes.NewBufferString(body))
		w := httptest.NewRecorder()
		testEnv.router.ServeHTTP(w, req)
		return w
	}

	get := func() (v1.Settings, *httptest.ResponseRecorder) {
		req := httptest.NewRequest(http.MethodGet, "/settings", nil)
		w := httptest.NewRecorder()
		testEnv.router.ServeHTTP(w, req)
		var settings v1.Settings
		if w.Code == http.StatusOK {
			Expect(json.Unmarshal(w.Body.Bytes(), &settings)).To(Succeed())
		}
		return settings, w
	}

	Describe("GetSettings", func() {
		// Given a fresh database
		// When we request the settings
		// Then everything is at its zero value
		It("should return empty settings before anything was saved", func() {
			// Act
			settings, w := get()

			// Assert
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(settings.AgeMode).To(BeEmpty())
			Expect(settings.DefaultCriteria).To(BeNil())
		})
	})

	Describe("UpdateSettings", func() {
		// Given saved preferences
		// When we read them back
		// Then age mode and default criteria round-trip
		It("should persist and return the saved preferences", func() {
			// Act
			w := put(`{"ageMode": "calendar", "defaultCriteria": {"creator": "alice", "minAgeDays": 3}}`)

			// Assert
			Expect(w.Code).To(Equal(http.StatusOK))
			settings, w := get()
			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(settings.AgeMode).To(Equal("calendar"))
			Expect(settings.DefaultCriteria).NotTo(BeNil())
			Expect(settings.DefaultCriteria.Creator).To(Equal("alice"))
			Expect(settings.DefaultCriteria.MinAgeDays).To(Equal(3))
		})

		// Given an age mode outside business/calendar
		// When we save
		// Then it is rejected with 400
		It("should reject an unknown age mode", func() {
			// Act
			w := put(`{"ageMode": "sidereal"}`)

			// Assert
			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})

		It("should reject a malformed body", func() {
			// Act
			w := put(`{invalid`)

			// Assert
			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("stored age mode", func() {
		BeforeEach(func() {
			// A full week back is 7 calendar days but exactly 5
			// business days whatever today's weekday is.
			client := newFakeClient("vc01.example.com")
			client.addVM(
				models.VirtualMachine{ID: "vm-10", Name: "web01"},
				models.Snapshot{
					ID:        "snap-1",
					VMID:      "vm-10",
					Name:      "weekly",
					CreatedAt: time.Now().Add(-7 * 24 * time.Hour),
					CreatedBy: "alice",
				},
			)
			testEnv.connect(client)
			testEnv.inventory.Refresh(context.Background())
		})

		querySnapshots := func(body string) []v1.Snapshot {
			req := httptest.NewRequest(http.MethodPost, "/snapshots/query", bytes.NewBufferString(body))
			w := httptest.NewRecorder()
			testEnv.router.ServeHTTP(w, req)
			Expect(w.Code).To(Equal(http.StatusOK))
			var response []v1.Snapshot
			Expect(json.Unmarshal(w.Body.Bytes(), &response)).To(Succeed())
			return response
		}

		// Given a persisted business age mode
		// When a query names no age mode
		// Then the stored preference decides the age unit
		It("should apply the persisted age mode to queries that omit one", func() {
			// Arrange
			Expect(put(`{"ageMode": "business"}`).Code).To(Equal(http.StatusOK))

			// Act
			matched := querySnapshots(`{"minAgeDays": 6}`)

			// Assert: 5 business days < 6, the snapshot is out.
			Expect(matched).To(BeEmpty())
		})

		// Given the same persisted preference
		// When a query names its own age mode
		// Then the request wins
		It("should let an explicit age mode override the stored one", func() {
			// Arrange
			Expect(put(`{"ageMode": "business"}`).Code).To(Equal(http.StatusOK))

			// Act
			matched := querySnapshots(`{"minAgeDays": 6, "ageMode": "calendar"}`)

			// Assert: 7 calendar days >= 6.
			Expect(matched).To(HaveLen(1))
			Expect(matched[0].Id).To(Equal("snap-1"))
		})
	})
})
