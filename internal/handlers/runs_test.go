package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	v1 "github.com/vmops/snapfleet/api/v1"
	"github.com/vmops/snapfleet/internal/models"
)

var _ = Describe("Run Handlers", func() {
	var (
		testEnv   *env
		sessionID models.SessionID
	)

	BeforeEach(func() {
		testEnv = newEnv()

		client := newFakeClient("vc01.example.com")
		client.addVM(models.VirtualMachine{ID: "vm-10", Name: "web01"})
		sessionID = testEnv.connect(client)
	})

	startRunBody := func() string {
		body, err := json.Marshal(v1.StartRunRequest{
			Operator: "alice",
			Tasks: []v1.Task{
				{
					Kind:      "create",
					SessionId: sessionID,
					VmId:      "vm-10",
					VmName:    "web01",
				},
			},
		})
		Expect(err).NotTo(HaveOccurred())
		return string(body)
	}

	Describe("StartRun", func() {
		// Given one create task against a connected session
		// When we post it to /runs
		// Then the run is accepted and later reported as finished
		It("should start a run and report its completion", func() {
			// Arrange
			req := httptest.NewRequest(http.MethodPost, "/runs", bytes.NewBufferString(startRunBody()))
			w := httptest.NewRecorder()

			// Act
			testEnv.router.ServeHTTP(w, req)

			// Assert
			Expect(w.Code).To(Equal(http.StatusAccepted))
			var accepted v1.RunStatus
			Expect(json.Unmarshal(w.Body.Bytes(), &accepted)).To(Succeed())
			Expect(accepted.Active).To(BeTrue())

			Eventually(func() v1.RunStatus {
				statusReq := httptest.NewRequest(http.MethodGet, "/runs/current", nil)
				statusW := httptest.NewRecorder()
				testEnv.router.ServeHTTP(statusW, statusReq)
				Expect(statusW.Code).To(Equal(http.StatusOK))

				var status v1.RunStatus
				Expect(json.Unmarshal(statusW.Body.Bytes(), &status)).To(Succeed())
				return status
			}).Should(SatisfyAll(
				HaveField("Active", BeFalse()),
				HaveField("Summary", Not(BeNil())),
			))

			statusReq := httptest.NewRequest(http.MethodGet, "/runs/current", nil)
			statusW := httptest.NewRecorder()
			testEnv.router.ServeHTTP(statusW, statusReq)

			var status v1.RunStatus
			Expect(json.Unmarshal(statusW.Body.Bytes(), &status)).To(Succeed())
			Expect(status.RunId).To(Equal(accepted.RunId))
			Expect(status.Summary.Outcome).To(Equal(string(models.RunOutcomeSuccess)))
			Expect(status.Summary.Succeeded).To(Equal(1))
		})

		// Given a delete task without a snapshot id
		// When we post it to /runs
		// Then it is rejected with 400
		It("should reject a delete task without a snapshot id", func() {
			// Arrange
			body := `{"tasks": [{"kind": "delete", "sessionId": "` + sessionID.String() + `", "vmId": "vm-10"}]}`
			req := httptest.NewRequest(http.MethodPost, "/runs", bytes.NewBufferString(body))
			w := httptest.NewRecorder()

			// Act
			testEnv.router.ServeHTTP(w, req)

			// Assert
			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})

		// Given an empty task list
		// When we post it to /runs
		// Then it is rejected with 400
		It("should reject an empty task list", func() {
			// Arrange
			req := httptest.NewRequest(http.MethodPost, "/runs", bytes.NewBufferString(`{"tasks": []}`))
			w := httptest.NewRecorder()

			// Act
			testEnv.router.ServeHTTP(w, req)

			// Assert
			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("GetCurrentRun", func() {
		// Given no run has ever started
		// When we request the current run
		// Then it returns 404
		It("should return 404 before the first run", func() {
			// Arrange
			req := httptest.NewRequest(http.MethodGet, "/runs/current", nil)
			w := httptest.NewRecorder()

			// Act
			testEnv.router.ServeHTTP(w, req)

			// Assert
			Expect(w.Code).To(Equal(http.StatusNotFound))
		})
	})

	Describe("CancelRun", func() {
		// Given no active run
		// When we request cancellation
		// Then it returns 404
		It("should return 404 when no run is active", func() {
			// Arrange
			req := httptest.NewRequest(http.MethodDelete, "/runs/current", nil)
			w := httptest.NewRecorder()

			// Act
			testEnv.router.ServeHTTP(w, req)

			// Assert
			Expect(w.Code).To(Equal(http.StatusNotFound))
		})
	})
})
