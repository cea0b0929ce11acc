package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	listingdomain "github.com/smallbiznis/estatehub/internal/listing/domain"
	"github.com/smallbiznis/estatehub/pkg/db/pagination"
)

type listListingsQuery struct {
	PageToken string `form:"page_token"`
	PageSize  int    `form:"page_size"`
	Status    string `form:"status"`
	AuthorID  string `form:"author_id"`
}

type extendListingRequest struct {
	PackageID string `json:"package_id"`
}

type rejectListingRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) CreateListing(c *gin.Context) {
	var req listingdomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	listing, err := s.listingSvc.Create(c.Request.Context(), mustActor(c), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": listing, "message": localize(c, msgListingCreated)})
}

// GetListing returns active listings to anyone and other listings to their
// owner or staff.
func (s *Server) GetListing(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	listing, err := s.listingSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	actor := mustActor(c)
	if listing.Status != listingdomain.StatusActive && !actor.IsStaff() && listing.AuthorID != actor.ID {
		AbortWithError(c, ErrNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": listing})
}

func (s *Server) ListListings(c *gin.Context) {
	var query listListingsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	req := listingdomain.ListRequest{
		Pagination: pagination.Pagination{
			PageToken: strings.TrimSpace(query.PageToken),
			PageSize:  query.PageSize,
		},
	}
	if strings.TrimSpace(query.Status) != "" {
		status, err := listingdomain.ParseStatus(query.Status)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		req.Status = status
	}

	actor := mustActor(c)
	if actor.IsStaff() {
		authorID, err := parseOptionalSnowflakeID(query.AuthorID)
		if err != nil {
			AbortWithError(c, newValidationError("author_id", "invalid_author_id", "invalid author_id"))
			return
		}
		if authorID != nil {
			req.AuthorID = *authorID
		}
	} else {
		req.AuthorID = actor.ID
	}

	resp, err := s.listingSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp.Listings, "page_info": resp.PageInfo})
}

func (s *Server) UpdateListing(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var fields listingdomain.Fields
	if err := c.ShouldBindJSON(&fields); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	listing, err := s.listingSvc.Update(c.Request.Context(), mustActor(c), id, fields)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": listing, "message": localize(c, msgListingUpdated)})
}

func (s *Server) ResubmitListing(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var fields listingdomain.Fields
	if err := bindOptionalJSON(c, &fields); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	listing, err := s.listingSvc.Resubmit(c.Request.Context(), mustActor(c), id, fields)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": listing, "message": localize(c, msgListingResubmitted)})
}

func (s *Server) ExtendListing(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req extendListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	listing, err := s.listingSvc.Extend(c.Request.Context(), mustActor(c), id, req.PackageID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": listing, "message": localize(c, msgListingExtended)})
}

func (s *Server) DeleteListing(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	listing, err := s.listingSvc.Delete(c.Request.Context(), mustActor(c), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": listing, "message": localize(c, msgListingDeleted)})
}

func (s *Server) ApproveListing(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	listing, err := s.listingSvc.Approve(c.Request.Context(), mustActor(c), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": listing, "message": localize(c, msgListingApproved)})
}

func (s *Server) RejectListing(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var req rejectListingRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	listing, err := s.listingSvc.Reject(c.Request.Context(), mustActor(c), id, req.Reason)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": listing, "message": localize(c, msgListingRejected)})
}

func (s *Server) ChangeListingStatus(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		AbortWithError(c, err)
		return
	}

	var body struct {
		Status string `json:"status"`
		Reason string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}
	status, err := listingdomain.ParseStatus(body.Status)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	listing, err := s.listingSvc.ChangeStatus(c.Request.Context(), mustActor(c), id, listingdomain.ChangeStatusRequest{
		Status: status,
		Reason: body.Reason,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": listing, "message": localize(c, msgListingStatusChanged)})
}

// bindOptionalJSON accepts an empty body as the zero value.
func bindOptionalJSON(c *gin.Context, dst any) error {
	if c.Request.ContentLength == 0 {
		return nil
	}
	return c.ShouldBindJSON(dst)
}
