package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"classlog/internal/school"
)

// ---------- Students ----------

func (h *Handler) ListStudents(c *gin.Context) {
	students, err := h.school.ListStudents(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"students": students})
}

func (h *Handler) CreateStudent(c *gin.Context) {
	var in school.StudentInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.fail(c, badRequest("invalid request body"))
		return
	}
	st, err := h.school.CreateStudent(c.Request.Context(), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, st)
}

func (h *Handler) UpdateStudent(c *gin.Context) {
	var in school.StudentInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.fail(c, badRequest("invalid request body"))
		return
	}
	st, err := h.school.UpdateStudent(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *Handler) DeleteStudent(c *gin.Context) {
	if err := h.school.DeleteStudent(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ---------- Subjects ----------

func (h *Handler) ListSubjects(c *gin.Context) {
	subjects, err := h.school.ListSubjects(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"subjects": subjects})
}

func (h *Handler) CreateSubject(c *gin.Context) {
	var in school.SubjectInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.fail(c, badRequest("invalid request body"))
		return
	}
	su, err := h.school.CreateSubject(c.Request.Context(), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, su)
}

func (h *Handler) UpdateSubject(c *gin.Context) {
	var in school.SubjectInput
	if err := c.ShouldBindJSON(&in); err != nil {
		h.fail(c, badRequest("invalid request body"))
		return
	}
	su, err := h.school.UpdateSubject(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, su)
}

func (h *Handler) DeleteSubject(c *gin.Context) {
	if err := h.school.DeleteSubject(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Readiness tells the client whether the class and absence forms can be shown.
func (h *Handler) Readiness(c *gin.Context) {
	r, err := h.school.Readiness(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

// ---------- Classes ----------

type classRequest struct {
	SubjectID string  `json:"subject_id"`
	Date      string  `json:"date"`
	Topic     string  `json:"topic"`
	Notes     *string `json:"notes"`
}

func (h *Handler) ListClasses(c *gin.Context) {
	sessions, err := h.school.ListClassSessions(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"classes": sessions})
}

func (h *Handler) GetClass(c *gin.Context) {
	cs, err := h.school.GetClassSession(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, cs)
}

func (h *Handler) RegisterClass(c *gin.Context) {
	var req classRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, badRequest("invalid request body"))
		return
	}
	date, err := bodyDate(req.Date)
	if err != nil {
		h.fail(c, err)
		return
	}
	cs, err := h.school.RegisterClass(c.Request.Context(), school.ClassInput{
		SubjectID: req.SubjectID,
		Date:      date,
		Topic:     req.Topic,
		Notes:     req.Notes,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, cs)
}

// History filters sessions by subject_id, student_id, from and to.
func (h *Handler) History(c *gin.Context) {
	from, err := queryDate(c, "from")
	if err != nil {
		h.fail(c, err)
		return
	}
	to, err := queryDate(c, "to")
	if err != nil {
		h.fail(c, err)
		return
	}
	sessions, err := h.school.History(c.Request.Context(), school.HistoryFilter{
		SubjectID: strings.TrimSpace(c.Query("subject_id")),
		StudentID: strings.TrimSpace(c.Query("student_id")),
		From:      from,
		To:        to,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"classes": sessions})
}

// ---------- Absences ----------

type absenceRequest struct {
	StudentID string  `json:"student_id"`
	SubjectID string  `json:"subject_id"`
	Date      string  `json:"date"`
	Reason    *string `json:"reason"`
	Justified bool    `json:"justified"`
}

func (h *Handler) ListAbsences(c *gin.Context) {
	absences, err := h.school.ListAbsences(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"absences": absences})
}

func (h *Handler) CreateAbsence(c *gin.Context) {
	var req absenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, badRequest("invalid request body"))
		return
	}
	date, err := bodyDate(req.Date)
	if err != nil {
		h.fail(c, err)
		return
	}
	ab, err := h.school.CreateAbsence(c.Request.Context(), school.AbsenceInput{
		StudentID: req.StudentID,
		SubjectID: req.SubjectID,
		Date:      date,
		Reason:    req.Reason,
		Justified: req.Justified,
	})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, ab)
}

func (h *Handler) DeleteAbsence(c *gin.Context) {
	if err := h.school.DeleteAbsence(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ---------- Dates ----------

// bodyDate parses a form date. Empty is left to the required-field check.
func bodyDate(s string) (time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return time.Time{}, nil
	}
	d, err := school.ParseDate(s)
	if err != nil {
		return time.Time{}, &school.ValidationError{Fields: []school.FieldError{
			{Field: "date", Error: "must be a YYYY-MM-DD date"},
		}}
	}
	return d, nil
}

// queryDate parses an optional YYYY-MM-DD query parameter.
func queryDate(c *gin.Context, key string) (time.Time, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return time.Time{}, nil
	}
	d, err := school.ParseDate(raw)
	if err != nil {
		return time.Time{}, badRequest("%s must be a YYYY-MM-DD date", key)
	}
	return d, nil
}
