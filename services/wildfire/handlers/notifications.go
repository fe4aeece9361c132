// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/WildfireOS/services/wildfire/store"
)

// HandleListNotifications returns the alert feed newest first. Query
// params: limit (default 50, 0 means all) and offset.
func HandleListNotifications(feed *store.NotificationStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
		if err != nil || limit < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
		if err != nil || offset < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "offset must be a non-negative integer"})
			return
		}

		items, err := feed.Notifications(limit, offset)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read notifications: " + err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"notifications": items, "count": len(items)})
	}
}

// HandleClearNotifications drops all stored notifications and
// recommendations.
func HandleClearNotifications(feed *store.NotificationStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := feed.ClearAll(); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to clear notifications: " + err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "cleared"})
	}
}

// HandleListRecommendations returns the recommendation history oldest
// first.
func HandleListRecommendations(feed *store.NotificationStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		recs, err := feed.Recommendations()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read recommendations: " + err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"recommendations": recs, "count": len(recs)})
	}
}

// HandleLatestRecommendation returns the most recent recommendation, or
// 404 when none has been stored yet.
func HandleLatestRecommendation(feed *store.NotificationStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		rec, err := feed.LatestRecommendation()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read recommendation: " + err.Error()})
			return
		}
		if rec == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "no recommendation stored"})
			return
		}
		c.JSON(http.StatusOK, rec)
	}
}
