package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/AMITPYT/trekPlanner/internal/middleware"
	"github.com/AMITPYT/trekPlanner/models"
)

// Ошибки, по которым вызывающая сторона различает исходы запроса.
var (
	// ErrAuthorization сигнализирует об ошибке авторизации (401).
	ErrAuthorization = errors.New("ошибка авторизации")
	// ErrForbidden сигнализирует об отказе в доступе (403): запись принадлежит другому пользователю.
	ErrForbidden = errors.New("доступ запрещен")
	// ErrNotFound сигнализирует об отсутствии записи (404).
	ErrNotFound = errors.New("запись не найдена")
)

// TokenSource возвращает текущий токен или пустую строку, если пользователь не вошел.
// Вызывается при КАЖДОЙ отправке запроса: токен, полученный после создания
// клиента, тоже будет подставлен.
type TokenSource func() string

// Client определяет интерфейс для взаимодействия с API сервера TrekPlanner.
type Client interface {
	// Register регистрирует нового пользователя и возвращает JWT токен.
	Register(ctx context.Context, name, email, password string) (string, error)
	// Login аутентифицирует пользователя и возвращает JWT токен.
	Login(ctx context.Context, email, password string) (string, error)
	// ListTreks получает страницу списка треков.
	ListTreks(ctx context.Context, page, limit int) (*models.TrekListResponse, error)
	// GetTrek получает трек по id.
	GetTrek(ctx context.Context, id int64) (*models.Trek, error)
	// CreateTrek создает трек.
	CreateTrek(ctx context.Context, req *models.TrekRequest) (*models.Trek, error)
	// UpdateTrek изменяет трек.
	UpdateTrek(ctx context.Context, id int64, req *models.TrekRequest) (*models.Trek, error)
	// DeleteTrek удаляет трек.
	DeleteTrek(ctx context.Context, id int64) error
	// UploadImage загружает изображение и возвращает обновленный трек.
	UploadImage(ctx context.Context, id int64, data io.Reader, size int64, contentType string) (*models.Trek, error)
	// DownloadImage скачивает изображение трека.
	// Возвращаемый reader нужно закрыть после использования.
	DownloadImage(ctx context.Context, id int64, objectName string) (io.ReadCloser, error)
}

// httpClient реализует интерфейс Client для взаимодействия с сервером по HTTP.
// Токен не хранится в клиенте: он запрашивается у tokenSource в момент отправки,
// поэтому конкурентные запросы с разными токенами не мешают друг другу.
type httpClient struct {
	baseURL        string       // Базовый URL сервера, например "http://localhost:8080"
	httpClient     *http.Client // HTTP клиент для выполнения запросов
	tokenSource    TokenSource
	onUnauthorized func() // Вызывается при любом 401: сброс токена и возврат на экран входа
}

// NewHTTPClient создает новый экземпляр API клиента.
// onUnauthorized может быть nil, если реакция на 401 не нужна.
func NewHTTPClient(baseURL string, tokenSource TokenSource, onUnauthorized func()) Client {
	return &httpClient{
		baseURL:        baseURL,
		httpClient:     &http.Client{},
		tokenSource:    tokenSource,
		onUnauthorized: onUnauthorized,
	}
}

// Register отправляет запрос на регистрацию и возвращает токен.
func (c *httpClient) Register(ctx context.Context, name, email, password string) (string, error) {
	body := models.RegisterRequest{Name: name, Email: email, Password: password}

	var resp models.TokenResponse
	if err := c.doJSON(ctx, http.MethodPost, "/auth/signup", body, &resp); err != nil {
		return "", fmt.Errorf("ошибка регистрации: %w", err)
	}
	if resp.Token == "" {
		return "", errors.New("сервер вернул пустой токен")
	}
	return resp.Token, nil
}

// Login отправляет запрос на вход и возвращает токен.
func (c *httpClient) Login(ctx context.Context, email, password string) (string, error) {
	body := models.LoginRequest{Email: email, Password: password}

	var resp models.TokenResponse
	if err := c.doJSON(ctx, http.MethodPost, "/auth/login", body, &resp); err != nil {
		return "", fmt.Errorf("ошибка входа: %w", err)
	}
	if resp.Token == "" {
		return "", errors.New("сервер вернул пустой токен")
	}
	return resp.Token, nil
}

// ListTreks получает страницу списка треков.
func (c *httpClient) ListTreks(ctx context.Context, page, limit int) (*models.TrekListResponse, error) {
	path := "/treks?page=" + strconv.Itoa(page) + "&limit=" + strconv.Itoa(limit)

	var resp models.TrekListResponse
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("ошибка получения списка треков: %w", err)
	}
	return &resp, nil
}

// GetTrek получает трек по id.
func (c *httpClient) GetTrek(ctx context.Context, id int64) (*models.Trek, error) {
	var trek models.Trek
	if err := c.doJSON(ctx, http.MethodGet, "/treks/"+strconv.FormatInt(id, 10), nil, &trek); err != nil {
		return nil, fmt.Errorf("ошибка получения трека: %w", err)
	}
	return &trek, nil
}

// CreateTrek создает трек.
func (c *httpClient) CreateTrek(ctx context.Context, req *models.TrekRequest) (*models.Trek, error) {
	var trek models.Trek
	if err := c.doJSON(ctx, http.MethodPost, "/treks", req, &trek); err != nil {
		return nil, fmt.Errorf("ошибка создания трека: %w", err)
	}
	return &trek, nil
}

// UpdateTrek изменяет трек.
func (c *httpClient) UpdateTrek(ctx context.Context, id int64, req *models.TrekRequest) (*models.Trek, error) {
	var trek models.Trek
	if err := c.doJSON(ctx, http.MethodPut, "/treks/"+strconv.FormatInt(id, 10), req, &trek); err != nil {
		return nil, fmt.Errorf("ошибка изменения трека: %w", err)
	}
	return &trek, nil
}

// DeleteTrek удаляет трек.
func (c *httpClient) DeleteTrek(ctx context.Context, id int64) error {
	if err := c.doJSON(ctx, http.MethodDelete, "/treks/"+strconv.FormatInt(id, 10), nil, nil); err != nil {
		return fmt.Errorf("ошибка удаления трека: %w", err)
	}
	return nil
}

// UploadImage загружает изображение и возвращает обновленный трек.
func (c *httpClient) UploadImage(
	ctx context.Context,
	id int64,
	data io.Reader,
	size int64,
	contentType string,
) (*models.Trek, error) {
	uploadURL, err := url.JoinPath(c.baseURL, "/treks/"+strconv.FormatInt(id, 10)+"/images")
	if err != nil {
		return nil, fmt.Errorf("ошибка формирования URL для загрузки изображения: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, data)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания запроса на загрузку изображения: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.ContentLength = size
	c.attachToken(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ошибка выполнения запроса на загрузку изображения: %w", err)
	}
	defer resp.Body.Close()

	if err = c.checkStatus(resp); err != nil {
		return nil, fmt.Errorf("ошибка загрузки изображения: %w", err)
	}

	var trek models.Trek
	if err = json.NewDecoder(resp.Body).Decode(&trek); err != nil {
		return nil, fmt.Errorf("ошибка декодирования ответа: %w", err)
	}
	return &trek, nil
}

func (c *httpClient) DownloadImage(ctx context.Context, id int64, objectName string) (io.ReadCloser, error) {
	downloadURL, err := url.JoinPath(c.baseURL, "/treks/"+strconv.FormatInt(id, 10)+"/images/"+objectName)
	if err != nil {
		return nil, fmt.Errorf("ошибка формирования URL для скачивания изображения: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, nil)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания запроса на скачивание изображения: %w", err)
	}
	c.attachToken(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ошибка выполнения запроса на скачивание изображения: %w", err)
	}

	if err = c.checkStatus(resp); err != nil {
		resp.Body.Close()
		return nil, fmt.Errorf("ошибка скачивания изображения: %w", err)
	}
	// Тело не закрывается: вызывающая сторона читает поток и закрывает его сама.
	return resp.Body, nil
}

// doJSON выполняет запрос с JSON-телом reqBody (может быть nil) и декодирует
// JSON-ответ в respBody (может быть nil, если тело ответа не нужно).
func (c *httpClient) doJSON(ctx context.Context, method, path string, reqBody, respBody any) error {
	// path может содержать query-параметры, поэтому url.JoinPath не подходит
	fullURL := c.baseURL + path

	var bodyReader io.Reader
	if reqBody != nil {
		jsonData, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("ошибка кодирования тела запроса: %w", err)
		}
		bodyReader = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, bodyReader)
	if err != nil {
		return fmt.Errorf("ошибка создания запроса: %w", err)
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.attachToken(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ошибка выполнения запроса: %w", err)
	}
	defer resp.Body.Close() // Важно закрывать тело ответа

	if err = c.checkStatus(resp); err != nil {
		return err
	}

	if respBody == nil {
		return nil
	}
	if err = json.NewDecoder(resp.Body).Decode(respBody); err != nil {
		return fmt.Errorf("ошибка декодирования ответа: %w", err)
	}
	return nil
}

// attachToken подставляет текущий токен в заголовок запроса.
// Токен берется из tokenSource в момент отправки, а не создания клиента.
func (c *httpClient) attachToken(req *http.Request) {
	if c.tokenSource == nil {
		return
	}
	if token := c.tokenSource(); token != "" {
		req.Header.Set(middleware.AuthTokenHeader, token)
	}
}

// checkStatus переводит неуспешные статусы в ошибки клиента.
// На 401 дополнительно срабатывает onUnauthorized: вызывающая сторона
// сбрасывает токен и возвращает пользователя на экран входа.
func (c *httpClient) checkStatus(resp *http.Response) error {
	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		return nil
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		if c.onUnauthorized != nil {
			c.onUnauthorized()
		}
		return ErrAuthorization
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	}

	// Пытаемся достать сообщение об ошибке из тела ответа
	var errBody struct {
		Msg string `json:"msg"`
	}
	if decodeErr := json.NewDecoder(resp.Body).Decode(&errBody); decodeErr == nil && errBody.Msg != "" {
		return fmt.Errorf("сервер вернул ошибку: статус %d: %s", resp.StatusCode, errBody.Msg)
	}
	return fmt.Errorf("сервер вернул ошибку: статус %d", resp.StatusCode)
}
