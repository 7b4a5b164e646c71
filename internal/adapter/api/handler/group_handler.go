package handler

import (
	"github.com/labstack/echo/v4"

	"soulcircle/internal/domain/entity"
	"soulcircle/internal/usecase"
	"soulcircle/pkg/response"
)

type GroupHandler struct {
	groupUseCase *usecase.GroupUseCase
}

func NewGroupHandler(groupUseCase *usecase.GroupUseCase) *GroupHandler {
	return &GroupHandler{
		groupUseCase: groupUseCase,
	}
}

type joinByCodeRequest struct {
	InviteCode string `json:"invite_code" validate:"required,len=8,alphanum"`
}

type inviteRequest struct {
	UserID   string `json:"user_id" validate:"required"`
	UserName string `json:"user_name" validate:"max=80"`
}

type banRequest struct {
	UserID string `json:"user_id" validate:"required"`
}

type changeRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=mod member"`
}

func (h *GroupHandler) Create(c echo.Context) error {
	var req usecase.CreateGroupInput
	if err := bindAndValidate(c, &req); err != nil {
		return response.Error(c, err)
	}

	group, err := h.groupUseCase.Create(c.Request().Context(), actor(c), req)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Created(c, group)
}

// List supports ?kind=room|circle, ?search=, ?mine=true and ?limit=.
func (h *GroupHandler) List(c echo.Context) error {
	filter := entity.GroupFilter{
		Kind:   c.QueryParam("kind"),
		Search: c.QueryParam("search"),
		Limit:  queryInt(c, "limit", 0),
	}
	if c.QueryParam("mine") == "true" {
		filter.MemberID = actor(c).ID
	}

	groups, err := h.groupUseCase.List(c.Request().Context(), filter)
	if err != nil {
		return response.Error(c, err)
	}
	return response.List(c, groups, len(groups), filter.Limit)
}

func (h *GroupHandler) Get(c echo.Context) error {
	group, err := h.groupUseCase.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, group)
}

func (h *GroupHandler) Update(c echo.Context) error {
	var req usecase.UpdateGroupInput
	if err := bindAndValidate(c, &req); err != nil {
		return response.Error(c, err)
	}

	group, err := h.groupUseCase.Update(c.Request().Context(), c.Param("id"), actor(c), req)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, group)
}

func (h *GroupHandler) Delete(c echo.Context) error {
	if err := h.groupUseCase.Delete(c.Request().Context(), c.Param("id"), actor(c).ID); err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, map[string]string{"message": "Group deleted"})
}

func (h *GroupHandler) Join(c echo.Context) error {
	group, err := h.groupUseCase.Join(c.Request().Context(), c.Param("id"), actor(c))
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, group)
}

func (h *GroupHandler) JoinByCode(c echo.Context) error {
	var req joinByCodeRequest
	if err := bindAndValidate(c, &req); err != nil {
		return response.Error(c, err)
	}

	group, err := h.groupUseCase.JoinByInviteCode(c.Request().Context(), req.InviteCode, actor(c))
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, group)
}

func (h *GroupHandler) Leave(c echo.Context) error {
	if err := h.groupUseCase.Leave(c.Request().Context(), c.Param("id"), actor(c)); err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, map[string]string{"message": "Left group"})
}

func (h *GroupHandler) Members(c echo.Context) error {
	members, err := h.groupUseCase.Members(c.Request().Context(), c.Param("id"), actor(c).ID)
	if err != nil {
		return response.Error(c, err)
	}
	return response.List(c, members, len(members), 0)
}

func (h *GroupHandler) Invite(c echo.Context) error {
	var req inviteRequest
	if err := bindAndValidate(c, &req); err != nil {
		return response.Error(c, err)
	}

	group, err := h.groupUseCase.Invite(c.Request().Context(), c.Param("id"), actor(c), req.UserID, req.UserName)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, group)
}

func (h *GroupHandler) RemoveMember(c echo.Context) error {
	group, err := h.groupUseCase.Remove(c.Request().Context(), c.Param("id"), actor(c), c.Param("uid"))
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, group)
}

func (h *GroupHandler) Ban(c echo.Context) error {
	var req banRequest
	if err := bindAndValidate(c, &req); err != nil {
		return response.Error(c, err)
	}

	group, err := h.groupUseCase.Ban(c.Request().Context(), c.Param("id"), actor(c), req.UserID)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, group)
}

func (h *GroupHandler) ChangeRole(c echo.Context) error {
	var req changeRoleRequest
	if err := bindAndValidate(c, &req); err != nil {
		return response.Error(c, err)
	}

	group, err := h.groupUseCase.ChangeRole(c.Request().Context(), c.Param("id"), actor(c), c.Param("uid"), req.Role)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, group)
}
