package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"wingo/game"
	"wingo/models"
)

// maxPresetCrashPoint bounds operator-supplied crash points
var maxPresetCrashPoint = decimal.NewFromInt(1000)

type outcomeService struct {
	uowFactory UnitOfWorkFactory
	random     game.RandomSource
}

// NewOutcomeService creates the outcome generator. A nil source uses the process-wide
// generator.
func NewOutcomeService(uowFactory UnitOfWorkFactory, random game.RandomSource) OutcomeService {
	if random == nil {
		random = game.DefaultSource()
	}
	return &outcomeService{
		uowFactory: uowFactory,
		random:     random,
	}
}

// NextColor consumes the oldest color preset, or draws a color weighted against the money
// staked on each color in the round
func (s *outcomeService) NextColor(ctx context.Context, roundID string) (models.Color, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	preset, err := uow.PresetOutcomeRepository().ConsumeNext(ctx, models.GameKindColor)
	if err != nil {
		return "", fmt.Errorf("failed to consume color preset: %w", err)
	}
	if preset != nil {
		color, err := models.ParseColor(preset.Value)
		if err == nil {
			if err := uow.Commit(); err != nil {
				return "", fmt.Errorf("failed to commit transaction: %w", err)
			}
			log.WithFields(log.Fields{
				"roundID":  roundID,
				"presetID": preset.ID,
				"color":    color,
			}).Info("Using preset color outcome")
			return color, nil
		}
		// the bad preset stays consumed so it cannot block the queue
		log.WithFields(log.Fields{
			"presetID": preset.ID,
			"value":    preset.Value,
		}).Warn("Discarding invalid color preset")
	}

	stakes, err := uow.BetRepository().SumOpenStakesByColor(ctx, roundID)
	if err != nil {
		return "", fmt.Errorf("failed to sum stakes: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit transaction: %w", err)
	}

	odds := game.ColorProbabilities(stakes)
	color := odds.Pick(s.random.Float64())

	log.WithFields(log.Fields{
		"roundID": roundID,
		"red":     odds.Red,
		"green":   odds.Green,
		"violet":  odds.Violet,
		"color":   color,
	}).Debug("Drew color outcome")
	return color, nil
}

// NextCrashPoint consumes the oldest crash preset, or draws from the crash distribution
func (s *outcomeService) NextCrashPoint(ctx context.Context) (decimal.Decimal, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return decimal.Zero, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	preset, err := uow.PresetOutcomeRepository().ConsumeNext(ctx, models.GameKindCrash)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to consume crash preset: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return decimal.Zero, fmt.Errorf("failed to commit transaction: %w", err)
	}

	if preset != nil {
		point, err := parseCrashPreset(preset.Value)
		if err == nil {
			log.WithFields(log.Fields{
				"presetID":   preset.ID,
				"crashPoint": point.StringFixed(2),
			}).Info("Using preset crash point")
			return point, nil
		}
		log.WithFields(log.Fields{
			"presetID": preset.ID,
			"value":    preset.Value,
		}).Warn("Discarding invalid crash preset")
	}

	return game.DrawCrashPoint(s.random.Float64(), s.random.Float64()), nil
}

func parseCrashPreset(value string) (decimal.Decimal, error) {
	point, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, ErrInvalidPreset
	}
	point = point.Round(2)
	if !game.ValidCrashPoint(point) || point.GreaterThan(maxPresetCrashPoint) {
		return decimal.Zero, ErrInvalidPreset
	}
	return point, nil
}

// AddPreset validates and queues an operator override
func (s *outcomeService) AddPreset(ctx context.Context, gameKind models.GameKind, value string) (*models.PresetOutcome, error) {
	switch gameKind {
	case models.GameKindColor:
		color, err := models.ParseColor(value)
		if err != nil {
			return nil, ErrInvalidPreset
		}
		value = string(color)
	case models.GameKindCrash:
		point, err := parseCrashPreset(value)
		if err != nil {
			return nil, err
		}
		value = point.StringFixed(2)
	default:
		return nil, ErrInvalidPreset
	}

	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	preset := &models.PresetOutcome{GameKind: gameKind, Value: value}
	if err := uow.PresetOutcomeRepository().Enqueue(ctx, preset); err != nil {
		return nil, fmt.Errorf("failed to enqueue preset: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.WithFields(log.Fields{
		"game":  gameKind,
		"value": value,
	}).Info("Preset outcome queued")
	return preset, nil
}

func (s *outcomeService) ListPresets(ctx context.Context, gameKind models.GameKind) ([]*models.PresetOutcome, error) {
	uow := s.uowFactory.Create()
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer uow.Rollback()

	presets, err := uow.PresetOutcomeRepository().ListPending(ctx, gameKind)
	if err != nil {
		return nil, fmt.Errorf("failed to list presets: %w", err)
	}
	return presets, nil
}
