package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/psds-microservice/complaint-service/internal/service"
)

type AttendanceHandler struct {
	attendance *service.Attendance
}

func NewAttendanceHandler(attendance *service.Attendance) *AttendanceHandler {
	return &AttendanceHandler{attendance: attendance}
}

func (h *AttendanceHandler) CheckIn(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	st, err := h.attendance.CheckIn(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *AttendanceHandler) CheckOut(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	res, err := h.attendance.CheckOut(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *AttendanceHandler) Status(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	st, err := h.attendance.Status(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *AttendanceHandler) DailyRecords(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	records, err := h.attendance.DailyRecords(c.Request.Context(), id, c.Query("from"), c.Query("to"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records})
}
